package doctor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"time"

	"audioguard/audio"
	"audioguard/config"
	"audioguard/notify"
	"audioguard/siren"
)

type fakeTransport struct{ err error }

func (f fakeTransport) Name() string                                { return "fake" }
func (f fakeTransport) Notify(context.Context, notify.Notice) error { return f.err }

func loudPCM(n int) []byte {
	buf := make([]byte, n*2)
	for i := range n {
		v := int16(16000)
		if i%2 == 1 {
			v = -16000
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func newDoctor(pcm []byte, answer string, tr notify.Transport) (*Doctor, *bytes.Buffer, *siren.Recorder) {
	cfg := config.Default()
	cfg.DBThreshold = -10
	out := &bytes.Buffer{}
	rec := &siren.Recorder{}
	return &Doctor{
		Config:    cfg,
		Audio:     audio.NewFakeContextPCM(pcm, false),
		Player:    rec,
		Transport: tr,
		In:        strings.NewReader(answer),
		Out:       out,
		Listen:    10 * time.Millisecond,
	}, out, rec
}

func TestRunAllPass(t *testing.T) {
	d, out, rec := newDoctor(loudPCM(4096), "y\n", fakeTransport{})
	if code := d.Run(context.Background()); code != 0 {
		t.Fatalf("exit code = %d\n%s", code, out)
	}
	if rec.Played() != 1 {
		t.Errorf("siren played %d times", rec.Played())
	}
	if !strings.Contains(out.String(), "would alert: yes") {
		t.Errorf("expected loud signal to cross -10 dB:\n%s", out)
	}
}

func TestRunSilentMicFails(t *testing.T) {
	d, out, _ := newDoctor(make([]byte, 4096), "y\n", fakeTransport{})
	if code := d.Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "only silence") {
		t.Errorf("output missing silence failure:\n%s", out)
	}
}

func TestRunSirenNotConfirmed(t *testing.T) {
	d, out, _ := newDoctor(loudPCM(2048), "n\n", fakeTransport{})
	if code := d.Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "siren not confirmed") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunNotificationFailure(t *testing.T) {
	d, out, _ := newDoctor(loudPCM(2048), "y\n", fakeTransport{err: errors.New("webhook returned status 500")})
	if code := d.Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "status 500") {
		t.Errorf("output:\n%s", out)
	}
}
