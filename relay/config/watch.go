package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// BudgetSetter receives token budget changes from a reloaded config file.
type BudgetSetter interface {
	SetBudget(budget int)
}

// Watch reloads the config file on change and pushes the new token budget.
// Other settings need a restart.
func Watch(setter BudgetSetter, logger zerolog.Logger) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		applyChange(e, setter, logger)
	})
	viper.WatchConfig()
}

func applyChange(e fsnotify.Event, setter BudgetSetter, logger zerolog.Logger) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	budget := viper.GetInt("conversation.token_budget")
	if budget < 0 {
		logger.Warn().Int("token_budget", budget).Msg("ignoring negative token budget from reloaded config")
		return
	}
	setter.SetBudget(budget)
	logger.Info().Str("file", e.Name).Int("token_budget", budget).Msg("config reloaded")
}
