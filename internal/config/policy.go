package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RewardPolicy holds the tunable reward and budget limits.
type RewardPolicy struct {
	ChargeMin      int64  `mapstructure:"chargeMin"`
	ChargeMax      int64  `mapstructure:"chargeMax"`
	DefaultQRPoint int64  `mapstructure:"defaultQrPoint"`
	QuizMinCount   int    `mapstructure:"quizMinCount"`
	QuizMaxCount   int    `mapstructure:"quizMaxCount"`
	QuizPointMin   int64  `mapstructure:"quizPointMin"`
	QuizPointMax   int64  `mapstructure:"quizPointMax"`
	Timezone       string `mapstructure:"timezone"`
	HistoryLimit   int    `mapstructure:"historyLimit"`
}

func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		ChargeMin:      1_000,
		ChargeMax:      10_000_000,
		DefaultQRPoint: 100,
		QuizMinCount:   3,
		QuizMaxCount:   5,
		QuizPointMin:   10,
		QuizPointMax:   50,
		Timezone:       "Asia/Seoul",
		HistoryLimit:   50,
	}
}

// Location returns the timezone used for calendar-day rules.
// Falls back to UTC when the zone database does not know the name.
func (p RewardPolicy) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PolicyHolder serves the current RewardPolicy and swaps it when the
// policy file changes on disk.
type PolicyHolder struct {
	current atomic.Value // holds RewardPolicy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(policy RewardPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

// NewPolicyHolder reads reward_policy.yml from /etc/flyerpoint or the
// working directory, falling back to defaults, and hot reloads the file when
// one was found. Invalid reloads keep the previous policy.
func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	log = log.Named("reward.policy")
	v := viper.New()

	v.SetConfigName("reward_policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/flyerpoint")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLYERPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	registerPolicyDefaults(v)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	policy, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePolicy(v)
		if err != nil {
			log.Warn("policy reload ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name), zap.Any("policy", updated))
	})

	return holder, nil
}

func registerPolicyDefaults(v *viper.Viper) {
	defaults := DefaultRewardPolicy()
	v.SetDefault("reward.chargeMin", defaults.ChargeMin)
	v.SetDefault("reward.chargeMax", defaults.ChargeMax)
	v.SetDefault("reward.defaultQrPoint", defaults.DefaultQRPoint)
	v.SetDefault("reward.quizMinCount", defaults.QuizMinCount)
	v.SetDefault("reward.quizMaxCount", defaults.QuizMaxCount)
	v.SetDefault("reward.quizPointMin", defaults.QuizPointMin)
	v.SetDefault("reward.quizPointMax", defaults.QuizPointMax)
	v.SetDefault("reward.timezone", defaults.Timezone)
	v.SetDefault("reward.historyLimit", defaults.HistoryLimit)
}

// decodePolicy unmarshals the whole tree so keys missing from the file keep
// their registered defaults. UnmarshalKey on a file-defined map would not.
func decodePolicy(v *viper.Viper) (RewardPolicy, error) {
	var doc struct {
		Reward RewardPolicy `mapstructure:"reward"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return RewardPolicy{}, err
	}
	if err := ValidateRewardPolicy(doc.Reward); err != nil {
		return RewardPolicy{}, err
	}
	return doc.Reward, nil
}

func (h *PolicyHolder) Get() RewardPolicy {
	return h.current.Load().(RewardPolicy)
}

func ValidateRewardPolicy(p RewardPolicy) error {
	if p.ChargeMin <= 0 || p.ChargeMax < p.ChargeMin {
		return fmt.Errorf("reward.chargeMin/chargeMax invalid: %d..%d", p.ChargeMin, p.ChargeMax)
	}
	if p.DefaultQRPoint <= 0 {
		return errors.New("reward.defaultQrPoint must be positive")
	}
	if p.QuizMinCount <= 0 || p.QuizMaxCount < p.QuizMinCount {
		return fmt.Errorf("reward.quizMinCount/quizMaxCount invalid: %d..%d", p.QuizMinCount, p.QuizMaxCount)
	}
	if p.QuizPointMin <= 0 || p.QuizPointMax < p.QuizPointMin {
		return fmt.Errorf("reward.quizPointMin/quizPointMax invalid: %d..%d", p.QuizPointMin, p.QuizPointMax)
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("reward.timezone: %w", err)
	}
	if p.HistoryLimit <= 0 {
		return errors.New("reward.historyLimit must be positive")
	}
	return nil
}
