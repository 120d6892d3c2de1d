package capability

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClipboard struct {
	got string
	err error
}

func (f *fakeClipboard) WriteText(text string) error {
	f.got = text
	return f.err
}

type fakeSpeaker struct {
	err    error
	played func()
}

func (f fakeSpeaker) Speak(context.Context, string) error {
	if f.played != nil {
		f.played()
	}
	return f.err
}

func TestCopyMessage(t *testing.T) {
	cb := &fakeClipboard{}
	n := CopyMessage(cb, "copy me")
	require.Equal(t, "copy me", cb.got)
	require.Equal(t, "Copied!", n.Title)
	require.Equal(t, domain.NoticeInfo, n.Level)

	n = CopyMessage(&fakeClipboard{err: errors.New("denied")}, "x")
	require.Equal(t, "Failed to copy message.", n.Description)
	require.Equal(t, domain.NoticeDestructive, n.Level)

	n = CopyMessage(nil, "x")
	require.Equal(t, domain.NoticeDestructive, n.Level)
}

func TestSpeakMessage(t *testing.T) {
	ctx := context.Background()
	speak := func(s Speaker) []string {
		log := &noticeLog{}
		SpeakMessage(ctx, s, "hi", log.add)
		return log.titles()
	}

	require.Equal(t, []string{"Speaking..."}, speak(fakeSpeaker{}))
	require.Equal(t, []string{"Not supported"}, speak(nil))

	var missing *CommandSpeaker
	require.Equal(t, []string{"Not supported"}, speak(missing))
	require.Equal(t, []string{"Speaking...", "Error"}, speak(fakeSpeaker{err: errors.New("device busy")}))
}

func TestSpeakMessageNotifiesBeforePlayback(t *testing.T) {
	var order []string
	notify := func(n domain.Notice) { order = append(order, n.Title) }
	s := fakeSpeaker{played: func() { order = append(order, "played") }}

	SpeakMessage(context.Background(), s, "hi", notify)
	require.Equal(t, []string{"Speaking...", "played"}, order)
}

func TestNewCommandSpeakerMissingBinary(t *testing.T) {
	require.Nil(t, NewCommandSpeaker("definitely-not-a-tts-binary-xyz"))
}

func TestCommandRecognizer(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not installed")
	}
	r := NewCommandRecognizer("echo hello world")
	require.NotNil(t, r)
	got, err := r.Listen(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello world", got)

	require.Nil(t, NewCommandRecognizer(""))
	var nilRec *CommandRecognizer
	_, err = nilRec.Listen(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

// scriptedRecognizer returns its outcome when released, or ctx.Err().
type scriptedRecognizer struct {
	started    chan struct{}
	transcript string
	err        error
	release    chan struct{}
}

func newScripted(transcript string, err error) *scriptedRecognizer {
	return &scriptedRecognizer{started: make(chan struct{}, 1), transcript: transcript, err: err, release: make(chan struct{})}
}

func (s *scriptedRecognizer) Listen(ctx context.Context) (string, error) {
	s.started <- struct{}{}
	select {
	case <-s.release:
		return s.transcript, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type noticeLog struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (l *noticeLog) add(n domain.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) titles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, n := range l.notices {
		out = append(out, n.Title)
	}
	return out
}

func TestVoiceInputDeliversTranscript(t *testing.T) {
	rec := newScripted("  turn on the lights ", nil)
	got := make(chan string, 1)
	log := &noticeLog{}
	v := NewVoiceInput(rec, func(_ context.Context, text string) error {
		got <- text
		return nil
	}, log.add)

	require.True(t, v.Supported())
	require.NoError(t, v.Start(context.Background()))
	<-rec.started
	require.True(t, v.Listening())
	require.NoError(t, v.Start(context.Background()))

	close(rec.release)
	v.Wait()
	require.Equal(t, "turn on the lights", <-got)
	require.False(t, v.Listening())
	require.Equal(t, []string{"Listening..."}, log.titles())
}

func TestVoiceInputBlankTranscriptIgnored(t *testing.T) {
	rec := newScripted("   ", nil)
	called := false
	v := NewVoiceInput(rec, func(context.Context, string) error {
		called = true
		return nil
	}, nil)
	require.NoError(t, v.Start(context.Background()))
	<-rec.started
	close(rec.release)
	v.Wait()
	require.False(t, called)
}

func TestVoiceInputErrorNotifies(t *testing.T) {
	rec := newScripted("", errors.New("mic unplugged"))
	log := &noticeLog{}
	v := NewVoiceInput(rec, func(context.Context, string) error { return nil }, log.add)
	require.NoError(t, v.Start(context.Background()))
	<-rec.started
	close(rec.release)
	v.Wait()
	require.Equal(t, []string{"Listening...", "Voice input error"}, log.titles())
	require.False(t, v.Listening())
}

func TestVoiceInputToggleStops(t *testing.T) {
	rec := newScripted("unused", nil)
	log := &noticeLog{}
	v := NewVoiceInput(rec, func(context.Context, string) error {
		t.Error("stopped session must not deliver")
		return nil
	}, log.add)

	require.NoError(t, v.Toggle(context.Background()))
	<-rec.started
	require.NoError(t, v.Toggle(context.Background()))
	v.Wait()

	require.Eventually(t, func() bool { return !v.Listening() }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"Listening..."}, log.titles())
}

func TestVoiceInputRestartAfterStop(t *testing.T) {
	rec := newScripted("second words", nil)
	got := make(chan string, 1)
	v := NewVoiceInput(rec, func(_ context.Context, text string) error {
		got <- text
		return nil
	}, nil)

	require.NoError(t, v.Start(context.Background()))
	<-rec.started
	v.Stop()
	require.False(t, v.Listening())

	require.NoError(t, v.Start(context.Background()))
	require.True(t, v.Listening())
	<-rec.started

	close(rec.release)
	v.Wait()
	require.Equal(t, "second words", <-got)
	require.False(t, v.Listening())
}

func TestVoiceInputUnsupported(t *testing.T) {
	v := NewVoiceInput(nil, nil, nil)
	require.False(t, v.Supported())
	require.ErrorIs(t, v.Start(context.Background()), ErrUnavailable)

	var missing *CommandRecognizer
	v = NewVoiceInput(missing, nil, nil)
	require.False(t, v.Supported())
}
