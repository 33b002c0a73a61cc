package period_test

import (
	"fmt"
	"time"

	"github.com/TradeBoost-AI/lead-ledger/internal/app/period"
)

func ExampleResolve() {
	now := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

	p, err := period.Resolve("Europe/London", now)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(p.MonthKey)
	fmt.Println(p.FirstOfMonth, "->", p.TodayDate)
	// Output:
	// 2025-03
	// 2025-03-01 -> 2025-03-15
}
