// Package events fans out rendered wallet views to live subscribers.
package events

import (
	"sync"

	"github.com/vadiminshakov/walletview/internal/domain"
)

const defaultBuffer = 64

// WalletBroadcaster fans out views to all subscribers via buffered channels.
type WalletBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan domain.WalletView]struct{}
	buffer int
}

// NewWalletBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewWalletBroadcaster(buffer int) *WalletBroadcaster {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	return &WalletBroadcaster{
		subs:   make(map[chan domain.WalletView]struct{}),
		buffer: buffer,
	}
}

// Publish sends the view to all subscribers, dropping it for readers that fall behind.
func (b *WalletBroadcaster) Publish(v domain.WalletView) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives views until Unsubscribe is called.
func (b *WalletBroadcaster) Subscribe() chan domain.WalletView {
	ch := make(chan domain.WalletView, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *WalletBroadcaster) Unsubscribe(ch chan domain.WalletView) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of active subscribers.
func (b *WalletBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
