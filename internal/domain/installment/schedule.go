package installment

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Option is one way of splitting a price: Count payments of PerInstallmentValue.
type Option struct {
	Count               int             `json:"count"`
	PerInstallmentValue decimal.Decimal `json:"per_installment_value"`
}

// Schedule is the ordered set of installment options quoted for a price.
type Schedule []Option

// NewSchedule returns the options ordered by installment count.
func NewSchedule(options ...Option) Schedule {
	s := make(Schedule, len(options))
	copy(s, options)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Count < s[j].Count })
	return s
}

func (s Schedule) IsEmpty() bool {
	return len(s) == 0
}

// Min returns the lowest per-installment value. ok is false for an empty schedule.
func (s Schedule) Min() (min decimal.Decimal, ok bool) {
	for i, o := range s {
		if i == 0 || o.PerInstallmentValue.LessThan(min) {
			min = o.PerInstallmentValue
		}
	}
	return min, len(s) > 0
}

// Counts lists the installment counts on offer.
func (s Schedule) Counts() []int {
	counts := make([]int, 0, len(s))
	for _, o := range s {
		counts = append(counts, o.Count)
	}
	return counts
}

// Offers reports whether count is one of the quoted options.
func (s Schedule) Offers(count int) bool {
	for _, o := range s {
		if o.Count == count {
			return true
		}
	}
	return false
}

// Marshal encodes the schedule for storage. An empty schedule encodes as "[]".
func (s Schedule) Marshal() ([]byte, error) {
	if s == nil {
		s = Schedule{}
	}
	data, err := json.Marshal([]Option(s))
	if err != nil {
		return nil, fmt.Errorf("marshal installment schedule: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a stored schedule. Empty input yields an empty schedule.
func Unmarshal(data []byte) (Schedule, error) {
	if len(data) == 0 {
		return Schedule{}, nil
	}
	var options []Option
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("unmarshal installment schedule: %w", err)
	}
	return NewSchedule(options...), nil
}
