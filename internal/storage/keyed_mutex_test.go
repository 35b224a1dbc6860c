package storage

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	var km KeyedMutex
	const workers = 8
	const rounds = 200

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				unlock := km.Lock("file-1")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*rounds {
		t.Errorf("expected %d increments, got %d", workers*rounds, counter)
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	var km KeyedMutex

	unlockA := km.Lock("file-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("file-b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on an unrelated key should not block")
	}
}
