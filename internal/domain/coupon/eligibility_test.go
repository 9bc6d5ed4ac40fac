package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)
	min50 := decimal.NewFromInt(50)

	tests := []struct {
		name     string
		rule     *Rule
		subtotal decimal.Decimal
		want     Reason
	}{
		{
			name:     "nil rule is not found",
			rule:     nil,
			subtotal: decimal.NewFromInt(100),
			want:     ReasonNotFound,
		},
		{
			name: "active coupon with no constraints is eligible",
			rule: &Rule{
				Code:         "SAVE10",
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
				Active:       true,
			},
			subtotal: decimal.NewFromInt(100),
			want:     ReasonNone,
		},
		{
			name: "inactive coupon",
			rule: &Rule{
				Code:         "OFF",
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(5),
				Active:       false,
			},
			subtotal: decimal.NewFromInt(100),
			want:     ReasonInactive,
		},
		{
			name: "end date in past is expired",
			rule: &Rule{
				Code:         "OLD",
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
				Active:       true,
				EndDate:      &pastTime,
			},
			subtotal: decimal.NewFromInt(100),
			want:     ReasonExpired,
		},
		{
			name: "end date in future is still valid",
			rule: &Rule{
				Code:         "FRESH",
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
				Active:       true,
				EndDate:      &futureTime,
			},
			subtotal: decimal.NewFromInt(100),
			want:     ReasonNone,
		},
		{
			name: "usage count equal to max is exhausted",
			rule: &Rule{
				Code:         "LIMITED",
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
				Active:       true,
				MaxUsage:     100,
				UsageCount:   100,
			},
			subtotal: decimal.NewFromInt(100),
			want:     ReasonUsageLimitReached,
		},
		{
			name: "usage limit wins over other validity fields",
			rule: &Rule{
				Code:         "LIMITED",
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(5),
				Active:       true,
				MaxUsage:     1,
				UsageCount:   1,
				EndDate:      &futureTime,
			},
			subtotal: decimal.NewFromInt(1000),
			want:     ReasonUsageLimitReached,
		},
		{
			name: "zero max usage means unlimited",
			rule: &Rule{
				Code:         "UNLIMITED",
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(5),
				Active:       true,
				MaxUsage:     0,
				UsageCount:   9999,
			},
			subtotal: decimal.NewFromInt(100),
			want:     ReasonNone,
		},
		{
			name: "subtotal below minimum order value",
			rule: &Rule{
				Code:          "MIN50",
				DiscountType:  DiscountFixed,
				Value:         decimal.NewFromInt(5),
				Active:        true,
				MinOrderValue: &min50,
			},
			subtotal: decimal.NewFromFloat(49.99),
			want:     ReasonBelowMinimumOrder,
		},
		{
			name: "subtotal exactly at minimum is eligible",
			rule: &Rule{
				Code:          "MIN50",
				DiscountType:  DiscountFixed,
				Value:         decimal.NewFromInt(5),
				Active:        true,
				MinOrderValue: &min50,
			},
			subtotal: decimal.NewFromInt(50),
			want:     ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.rule, tt.subtotal, fixedNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name:    "valid percentage",
			rule:    Rule{Code: "SAVE15", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(15)},
			wantErr: false,
		},
		{
			name:    "percentage over 100 rejected",
			rule:    Rule{Code: "TOOMUCH", DiscountType: DiscountPercentage, Value: decimal.NewFromInt(150)},
			wantErr: true,
		},
		{
			name:    "negative fixed rejected",
			rule:    Rule{Code: "NEG", DiscountType: DiscountFixed, Value: decimal.NewFromInt(-1)},
			wantErr: true,
		},
		{
			name:    "empty code rejected",
			rule:    Rule{DiscountType: DiscountFixed, Value: decimal.NewFromInt(5)},
			wantErr: true,
		},
		{
			name:    "unknown type rejected",
			rule:    Rule{Code: "X", DiscountType: "bogo", Value: decimal.NewFromInt(5)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
