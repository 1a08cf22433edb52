package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachat-inc/datachat-engine/pkg/config"
)

func fakeRegistration() Registration {
	return Registration{
		Introspector: func(ctx context.Context, cfg *config.DatasourceConfig, database string) (Introspector, error) {
			return nil, nil
		},
		QueryExecutor: func(ctx context.Context, cfg *config.DatasourceConfig, database string) (QueryExecutor, error) {
			return nil, nil
		},
	}
}

func TestRegisterAndFactory(t *testing.T) {
	Register("fakedriver", fakeRegistration())

	assert.Contains(t, Drivers(), "fakedriver")

	factory, err := NewFactory(&config.DatasourceConfig{Driver: "fakedriver"})
	require.NoError(t, err)
	assert.NotNil(t, factory)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("dupdriver", fakeRegistration())
	assert.Panics(t, func() {
		Register("dupdriver", fakeRegistration())
	})
}

func TestNewFactoryUnknownDriver(t *testing.T) {
	_, err := NewFactory(&config.DatasourceConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, MaxQueryLimit},
		{-5, MaxQueryLimit},
		{MaxQueryLimit + 1, MaxQueryLimit},
		{10, 10},
		{MaxQueryLimit, MaxQueryLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EffectiveLimit(tt.in))
	}
}
