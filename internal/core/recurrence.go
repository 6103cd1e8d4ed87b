package core

// Frequency is how often a recurring transaction repeats.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// SeriesKey groups the occurrences of one recurring transaction: same
// description, account, amount and type.
func (t Transaction) SeriesKey() string {
	return string(t.Type) + "|" + t.AccountID + "|" + t.Amount.StringFixed(2) + "|" + t.Description
}
