package db

import (
	"encoding/json"
	"time"
)

// TranslationCacheEntry maps lisan.translation_cache.
type TranslationCacheEntry struct {
	CacheKey   string          `gorm:"column:cache_key;type:text;primaryKey"`
	Text       string          `gorm:"column:text;type:text;not null"`
	SourceLang string          `gorm:"column:source_lang;type:text;not null"`
	TargetLang string          `gorm:"column:target_lang;type:text;not null"`
	Provider   string          `gorm:"column:provider;type:text;not null"`
	Result     json.RawMessage `gorm:"column:result;type:jsonb;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (TranslationCacheEntry) TableName() string { return "lisan.translation_cache" }

// UsageCounter maps lisan.usage_counters. Keys look like "requests:claude" or "cache:hits".
type UsageCounter struct {
	CounterKey string    `gorm:"column:counter_key;type:text;primaryKey"`
	Value      float64   `gorm:"column:value;type:double precision;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (UsageCounter) TableName() string { return "lisan.usage_counters" }

// UserQuota maps lisan.user_quotas.
type UserQuota struct {
	UserID            string     `gorm:"column:user_id;type:text;primaryKey"`
	Day               string     `gorm:"column:day;type:text;not null;default:''"`
	Count             int        `gorm:"column:count;type:integer;not null;default:0"`
	Tier              string     `gorm:"column:tier;type:text;not null;default:free"`
	PremiumSince      *time.Time `gorm:"column:premium_since;type:timestamptz"`
	LastTranslationAt *time.Time `gorm:"column:last_translation_at;type:timestamptz"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (UserQuota) TableName() string { return "lisan.user_quotas" }

func autoMigrateModels() []any {
	return []any{
		&TranslationCacheEntry{},
		&UsageCounter{},
		&UserQuota{},
	}
}
