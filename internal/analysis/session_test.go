package analysis

import (
	"sync"
	"testing"
)

func TestSession_FreshStartsEmpty(t *testing.T) {
	s := NewSession("")
	if tok := s.Token(); tok != "" {
		t.Errorf("expected empty token, got %q", tok)
	}
}

func TestSession_ResumesExisting(t *testing.T) {
	s := NewSession("thread_abc")
	if tok := s.Token(); tok != "thread_abc" {
		t.Errorf("expected thread_abc, got %q", tok)
	}
}

func TestSession_AdvanceKeepsTokenOnEmpty(t *testing.T) {
	s := NewSession("")
	s.Advance("thread_1")
	s.Advance("")
	if tok := s.Token(); tok != "thread_1" {
		t.Errorf("expected thread_1 after empty advance, got %q", tok)
	}
	s.Advance("thread_2")
	if tok := s.Token(); tok != "thread_2" {
		t.Errorf("expected thread_2, got %q", tok)
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := NewSession("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Advance("thread_x")
			_ = s.Token()
		}()
	}
	wg.Wait()
	if tok := s.Token(); tok != "thread_x" {
		t.Errorf("expected thread_x, got %q", tok)
	}
}
