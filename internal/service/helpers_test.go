package service

import (
	"context"
	"sync"

	"github.com/egannguyen/microshop/internal/entity"
	"github.com/egannguyen/microshop/internal/repository"
)

type published struct {
	topic string
	key   string
	event any
}

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, len(p.events))
	for i, e := range p.events {
		topics[i] = e.topic
	}
	return topics
}

// flakyCatalog fails ReserveAll when a line names failOn after Lookup
// succeeded, as if the product had been deleted in between. releaseErr makes
// ReleaseAll fail.
type flakyCatalog struct {
	repository.Catalog
	failOn     string
	releaseErr error
}

func (c *flakyCatalog) ReserveAll(ctx context.Context, lines []entity.LineRequest) ([]entity.Product, error) {
	for _, line := range lines {
		if line.ProductID == c.failOn {
			return nil, &entity.ProductNotFoundError{ProductID: line.ProductID}
		}
	}
	return c.Catalog.ReserveAll(ctx, lines)
}

func (c *flakyCatalog) ReleaseAll(ctx context.Context, lines []entity.LineRequest) error {
	if c.releaseErr != nil {
		return c.releaseErr
	}
	return c.Catalog.ReleaseAll(ctx, lines)
}

// failingOrders rejects every Save.
type failingOrders struct {
	repository.OrderRepository
	err error
}

func (r *failingOrders) Save(context.Context, entity.Order) error {
	return r.err
}
