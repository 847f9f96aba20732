package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedSize int

func (f fixedSize) Size() (int, error) { return int(f), nil }

func probe(name string, required bool, err *error) Probe {
	return Probe{
		Name:     name,
		Required: required,
		Check:    func(context.Context) error { return *err },
	}
}

func TestMonitorRequiredProbes(t *testing.T) {
	var dbErr, cacheErr error
	m := New([]Probe{probe("postgresql", true, &dbErr), probe("redis", false, &cacheErr)}, fixedSize(4), 0, nil)

	assert.False(t, m.IsOnline(), "never refreshed")

	m.Refresh(context.Background())
	assert.True(t, m.IsOnline())
	status := m.GetStatus()
	assert.True(t, status.Buffer)
	assert.Equal(t, 4, status.BufferSize)

	cacheErr = errors.New("redis down")
	m.Refresh(context.Background())
	assert.True(t, m.IsOnline(), "optional probes do not take the service offline")
	assert.False(t, m.GetStatus().Services["redis"].Online)

	dbErr = errors.New("postgres down")
	m.Refresh(context.Background())
	assert.False(t, m.IsOnline())
}

func TestMonitorWithoutProbes(t *testing.T) {
	m := New(nil, nil, 0, nil)
	m.Refresh(context.Background())
	assert.True(t, m.IsOnline())
	assert.False(t, m.GetStatus().Buffer)
	m.Stop()
	m.Stop()
}
