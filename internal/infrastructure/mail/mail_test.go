package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bookstore/backoffice/internal/core/domain"
	"github.com/bookstore/backoffice/internal/core/ports"
)

var (
	_ ports.Mailer = (*LogMailer)(nil)
	_ ports.Mailer = (*SMTPMailer)(nil)
	_ ports.Mailer = (*QueuedMailer)(nil)
)

type captured struct {
	to, code string
	role     domain.Role
}

type chanMailer struct {
	out chan captured
	err error
}

func (m *chanMailer) SendResetCode(_ context.Context, to, code string, role domain.Role) error {
	m.out <- captured{to: to, code: code, role: role}
	return m.err
}

func TestLogMailer_LogsCode(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf))

	if err := m.SendResetCode(context.Background(), "a@x.com", "code-1", domain.RoleClient); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"to":"a@x.com"`, `"reset_code":"code-1"`, `"role":"CLIENT"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %s", out, want)
		}
	}
}

func TestResetMessage(t *testing.T) {
	msg := resetMessage("noreply@shop.test", "a@x.com\r\nBcc: evil@x.com", "c0de", domain.RoleEmployee, 15*time.Minute)

	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatalf("header injection not stripped: %q", msg)
	}
	for _, want := range []string{"From: noreply@shop.test\r\n", "Reset code: c0de", "15 minutes", "staff account"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		time.Minute:      "1 minute",
		15 * time.Minute: "15 minutes",
		time.Hour:        "1 hour",
		3 * time.Hour:    "3 hours",
		24 * time.Hour:   "1 day",
		72 * time.Hour:   "3 days",
	}
	for d, want := range cases {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: "1", From: "x@y.z"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.SendResetCode(ctx, "a@x.com", "c", domain.RoleClient); err == nil {
		t.Fatal("expected dial error")
	}
}

func newQueueTest(t *testing.T, inner ports.Mailer, maxSize int64) (*QueuedMailer, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	q := NewQueuedMailer(inner, rdb, "", maxSize, zerolog.Nop())
	q.popTimeout = 100 * time.Millisecond
	return q, mr
}

func TestQueuedMailer_EnqueueAndDeliver(t *testing.T) {
	inner := &chanMailer{out: make(chan captured, 1)}
	q, _ := newQueueTest(t, inner, DefaultMaxQueueSize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := q.SendResetCode(context.Background(), "emp@x.com", "c-42", domain.RoleEmployee); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case got := <-inner.out:
		if got.to != "emp@x.com" || got.code != "c-42" || got.role != domain.RoleEmployee {
			t.Fatalf("unexpected job %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not deliver the job")
	}
}

func TestQueuedMailer_QueueFull(t *testing.T) {
	q, mr := newQueueTest(t, &chanMailer{out: make(chan captured, 4)}, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.SendResetCode(ctx, "a@x.com", "c", domain.RoleClient); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.SendResetCode(ctx, "a@x.com", "c", domain.RoleClient); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	items, _ := mr.List(DefaultQueueKey)
	if len(items) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(items))
	}
}

func TestQueuedMailer_DispatchFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	inner := &chanMailer{out: make(chan captured, 1), err: errors.New("relay down")}
	q := &QueuedMailer{inner: inner, log: zerolog.New(&buf)}

	q.dispatch(context.Background(), resetJob{ToEmail: "a@x.com", Code: "secret-code-xyz", Role: domain.RoleClient})

	if !strings.Contains(buf.String(), "relay down") {
		t.Fatalf("expected failure to be logged, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "secret-code-xyz") {
		t.Errorf("reset code must not be logged on failure")
	}
}
