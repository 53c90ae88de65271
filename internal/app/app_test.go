package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmachinequote/quote-engine/internal/app"
	"github.com/cardmachinequote/quote-engine/internal/config"
	"github.com/cardmachinequote/quote-engine/internal/domain"
	"github.com/cardmachinequote/quote-engine/internal/usecase"
)

func baseConfig() *config.Config {
	return &config.Config{
		AIProvider:         "none",
		ReconcilePolicy:    "wholesale",
		ReconcileThreshold: 0.5,
		GateTolerance:      1,
		QuotesInbox:        "quotes@example.com",
	}
}

func TestBuild_Defaults(t *testing.T) {
	eng, err := app.Build(context.Background(), baseConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Shutdown(context.Background()) })

	h := eng.Service.Health(context.Background())
	assert.True(t, h.Healthy)
	assert.False(t, h.AIEnabled)
	assert.Equal(t, 3, h.Tiers)
	assert.Equal(t, domain.DefaultRateTable(), eng.Table)
}

func TestBuild_PricesTextStatement(t *testing.T) {
	eng, err := app.Build(context.Background(), baseConfig())
	require.NoError(t, err)

	res := eng.Service.Analyse(context.Background(), usecase.AnalyseRequest{
		Document: domain.Document{
			Name:        "statement.txt",
			ContentType: "text/plain",
			Data: []byte("Dojo merchant statement\n" +
				"Total 500 £10,000.00\n" +
				"PCI fee £20.00\n" +
				"Net amount £300.00\n"),
		},
	})

	assert.Equal(t, domain.ParsingSuccess, res.ParsingStatus)
	assert.Equal(t, "Dojo", res.ProviderName)
	assert.Equal(t, 300.0, res.CurrentMonthlyCost)
}

func TestBuild_AIProviders(t *testing.T) {
	for _, provider := range []string{"openai", "ollama"} {
		t.Run(provider, func(t *testing.T) {
			cfg := baseConfig()
			cfg.AIProvider = provider
			cfg.OpenAIAPIKey = "sk-test"

			eng, err := app.Build(context.Background(), cfg)
			require.NoError(t, err)
			assert.True(t, eng.Service.Health(context.Background()).AIEnabled)
		})
	}
}

func TestBuild_ConfigErrors(t *testing.T) {
	badRates := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(badRates, []byte("tiers: []\n"), 0o600))

	tests := map[string]func(*config.Config){
		"unknown ai provider": func(c *config.Config) { c.AIProvider = "bard" },
		"unknown policy":      func(c *config.Config) { c.ReconcilePolicy = "average" },
		"missing rates file":  func(c *config.Config) { c.RatesFile = filepath.Join(t.TempDir(), "nope.yaml") },
		"invalid rates file":  func(c *config.Config) { c.RatesFile = badRates },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mutate(cfg)
			_, err := app.Build(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}
