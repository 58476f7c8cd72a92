package models

// TradeRecord is one immutable ledger row produced when a leg closes.
// Column names follow the trade ledger CSV contract.
type TradeRecord struct {
	Date            string     `csv:"Date"`
	Index           string     `csv:"Index"`
	Expiry          string     `csv:"Expiry"`
	Day             string     `csv:"Day"`
	EntryTime       string     `csv:"EntryTime"`
	IndexEntryPrice *float64   `csv:"IndexEntryPrice"`
	EntryPrice      float64    `csv:"EntryPrice"`
	ExitTime        string     `csv:"ExitTime"`
	IndexExitPrice  *float64   `csv:"IndexExitPrice"`
	ExitPrice       float64    `csv:"ExitPrice"`
	ExitReason      ExitReason `csv:"ExitReason"`
	Strike          int        `csv:"Strike"`
	Type            OptionType `csv:"Type"`
	Qty             int        `csv:"Qty"`
	PnL             float64    `csv:"PnL"`

	// Strategy-specific annotations. Empty for strategies that do not
	// populate the corresponding LegMeta fields.
	SLIndex       *float64 `csv:"SLIndex"`
	SLBeforeRound *float64 `csv:"SLBeforeRound"`
	Volatility    *float64 `csv:"Volatility"`
	UpperRange    *float64 `csv:"UpperRange"`
	LowerRange    *float64 `csv:"LowerRange"`
	RangeUsed     *float64 `csv:"RangeUsed"`
}

// IssueType classifies an issue row.
type IssueType string

const (
	IssueError   IssueType = "ERROR"
	IssueWarning IssueType = "WARNING"
)

// IssueRecord is one diagnostic row: degraded data (fallback candle used,
// leg skipped) or a hard failure (day aborted). Never affects trade PnL.
type IssueRecord struct {
	Date          string     `csv:"Date"`
	Index         string     `csv:"Index"`
	Strategy      string     `csv:"Strategy"`
	Type          IssueType  `csv:"Type"`
	Action        string     `csv:"Action"`
	Expiry        string     `csv:"Expiry"`
	Strike        int        `csv:"Strike"`
	OptionType    OptionType `csv:"OptionType"`
	RequestedTime string     `csv:"RequestedTime"`
	ActualTime    string     `csv:"ActualTime"`
	Message       string     `csv:"Message"`
}

// MinutePnLRow is one cumulative realized+MTM sample for one minute.
type MinutePnLRow struct {
	Date     string  `csv:"Date"`
	Time     string  `csv:"Time"`
	Strategy string  `csv:"Strategy"`
	PnL      float64 `csv:"PnL"`
}

// MinutePnLIssue records a minute whose snapshot was skipped because an
// open leg's close price was unresolvable.
type MinutePnLIssue struct {
	Date     string     `csv:"Date"`
	Time     string     `csv:"Time"`
	Strategy string     `csv:"Strategy"`
	LegID    string     `csv:"LegID"`
	Strike   int        `csv:"Strike"`
	Type     OptionType `csv:"Type"`
	Issue    string     `csv:"Issue"`
}
