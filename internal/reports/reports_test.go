package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/credit"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/pkg/helpers"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func income(amount string, date time.Time, category string) models.Transaction {
	return tx(models.TransactionIncome, amount, date, category, "Salary")
}

func expense(amount string, date time.Time, category, desc string) models.Transaction {
	return tx(models.TransactionExpense, amount, date, category, desc)
}

func tx(kind models.TransactionType, amount string, date time.Time, category, desc string) models.Transaction {
	t := models.Transaction{
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Date:        date,
		Type:        kind,
	}
	if category != "" {
		t.Category = helpers.Ptr(category)
	}
	return t
}

func creditPurchase(original string, installments int, date time.Time) models.Transaction {
	plan, err := credit.Amortize(decimal.RequireFromString(original), installments)
	if err != nil {
		panic(err)
	}
	t := models.Transaction{ID: "credit-1", Description: "Sofa", Date: date, Category: helpers.Ptr("home")}
	plan.Apply(&t)
	return t
}

func requireDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := MonthlyTotals(nil, time.UTC); got == nil || len(got) != 0 {
		t.Fatalf("MonthlyTotals(nil) = %#v, want empty slice", got)
	}
	if got := YearlyTotals(nil, time.UTC); len(got) != 0 {
		t.Fatalf("YearlyTotals(nil) = %#v", got)
	}
	if got := TopCategories(nil, CategoryAll); got == nil || len(got) != 0 {
		t.Fatalf("TopCategories(nil) = %#v", got)
	}
	if got := RecurringExpenses(nil); got == nil || len(got) != 0 {
		t.Fatalf("RecurringExpenses(nil) = %#v", got)
	}
	if got := DailySpending(nil, testNow); len(got) != 30 {
		t.Fatalf("DailySpending(nil) has %d entries", len(got))
	}

	trends := SpendingTrends(nil, testNow)
	if len(trends.Months) != 6 || trends.IncomeChange != 0 || trends.ExpenseChange != 0 {
		t.Fatalf("SpendingTrends(nil) = %#v", trends)
	}

	stats := TransactionStats(nil, testNow)
	if stats.Count != 0 || stats.LargestExpense != nil || stats.LargestIncome != nil || stats.DaysSinceFirst != 0 {
		t.Fatalf("TransactionStats(nil) = %#v", stats)
	}
	if len(stats.Weekdays) != 7 || len(stats.Recent) != 0 {
		t.Fatalf("TransactionStats(nil) shapes = %#v", stats)
	}

	summary := BuildSummary(nil)
	if !summary.Balance.IsZero() || summary.SavingsRate != 0 {
		t.Fatalf("BuildSummary(nil) = %#v", summary)
	}
}

func TestMonthlyTotalsReconcile(t *testing.T) {
	purchase := creditPurchase("600", 6, day(2025, 2, 3))
	txs := []models.Transaction{
		income("3000", day(2025, 1, 1), "salary"),
		expense("45.50", day(2025, 1, 12), "food", "Groceries"),
		expense("12.25", day(2025, 2, 14), "food", "Cafe"),
		purchase,
		credit.FirstPayment(purchase),
		income("150", day(2024, 12, 31), "gift"),
		{Amount: decimal.NewFromInt(999), Type: models.TransactionExpense, Description: "undated"},
	}

	got := MonthlyTotals(txs, time.UTC)
	wantKeys := []string{"2024-12", "2025-01", "2025-02"}
	if len(got) != len(wantKeys) {
		t.Fatalf("got %d months, want %d: %#v", len(got), len(wantKeys), got)
	}
	for i, key := range wantKeys {
		if got[i].Month != key {
			t.Fatalf("month[%d] = %s, want %s", i, got[i].Month, key)
		}
	}

	var net, direct decimal.Decimal
	for _, m := range got {
		net = net.Add(m.Income).Sub(m.Expense)
	}
	for _, row := range txs {
		if row.Date.IsZero() {
			continue
		}
		if row.Type == models.TransactionIncome {
			direct = direct.Add(row.Amount)
		} else if !row.IsCredit {
			direct = direct.Sub(row.Amount)
		}
	}
	if !net.Equal(direct) {
		t.Fatalf("monthly net %s does not reconcile with direct reduction %s", net, direct)
	}
	requireDecimal(t, "february expense", got[2].Expense, "112.25")
}

func TestCreditPurchaseCountsPerInstallment(t *testing.T) {
	purchase := creditPurchase("1200", 12, day(2025, 4, 2))
	txs := []models.Transaction{purchase, credit.FirstPayment(purchase)}

	got := MonthlyTotals(txs, time.UTC)
	if len(got) != 1 {
		t.Fatalf("got %d months, want 1", len(got))
	}
	requireDecimal(t, "april expense", got[0].Expense, "100")
}

func TestTopCategoriesSkipsCreditPurchaseRow(t *testing.T) {
	purchase := creditPurchase("1200", 12, day(2025, 4, 2))
	txs := []models.Transaction{purchase, credit.FirstPayment(purchase)}

	for _, kind := range []CategoryKind{CategoryExpense, CategoryAll} {
		got := TopCategories(txs, kind)
		if len(got) != 1 || got[0].Name != "Home" {
			t.Fatalf("TopCategories(%s) = %#v", kind, got)
		}
		requireDecimal(t, string(kind)+" home total", got[0].Amount, "100")
	}
}

func TestMonthlyTotalsUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	txs := []models.Transaction{
		expense("10", time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC), "", "Late dinner"),
	}
	got := MonthlyTotals(txs, tokyo)
	if len(got) != 1 || got[0].Month != "2025-02" {
		t.Fatalf("MonthlyTotals in JST = %#v, want 2025-02", got)
	}
}

func TestYearlyTotals(t *testing.T) {
	txs := []models.Transaction{
		income("100", day(2024, 5, 1), ""),
		expense("40", day(2024, 6, 1), "", "Gym"),
		income("200", day(2025, 1, 1), ""),
	}
	got := YearlyTotals(txs, time.UTC)
	if len(got) != 2 || got[0].Year != "2024" || got[1].Year != "2025" {
		t.Fatalf("YearlyTotals = %#v", got)
	}
	requireDecimal(t, "2024 net", got[0].Net, "60")
	requireDecimal(t, "2025 net", got[1].Net, "200")
}

func TestTopCategories(t *testing.T) {
	d := day(2025, 6, 1)
	txs := []models.Transaction{
		expense("10", d, "Food", "a"),
		expense("10", d, " food ", "b"),
		expense("30", d, "rent", "c"),
		expense("20", d, "travel", "d"),
		expense("20", d, "fun", "e"),
		expense("5", d, "misc", "f"),
		expense("1", d, "tiny", "g"),
		expense("50", d, "", "uncategorized"),
		income("500", d, "salary"),
	}

	got := TopCategories(txs, CategoryExpense)
	if len(got) != 5 {
		t.Fatalf("got %d categories, want 5: %#v", len(got), got)
	}
	wantNames := []string{"Rent", "Food", "Travel", "Fun", "Misc"}
	for i, name := range wantNames {
		if got[i].Name != name {
			t.Fatalf("category[%d] = %s, want %s (%#v)", i, got[i].Name, name, got)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Amount.GreaterThan(got[i-1].Amount) {
			t.Fatalf("categories not sorted descending: %#v", got)
		}
	}

	incomeOnly := TopCategories(txs, CategoryIncome)
	if len(incomeOnly) != 1 || incomeOnly[0].Name != "Salary" {
		t.Fatalf("income categories = %#v", incomeOnly)
	}
	all := TopCategories(txs, CategoryAll)
	if all[0].Name != "Salary" {
		t.Fatalf("all categories should rank salary first: %#v", all)
	}
}

func TestSpendingTrendsMonthOverMonth(t *testing.T) {
	txs := []models.Transaction{
		income("1000", day(2025, 5, 1), ""),
		expense("400", day(2025, 5, 10), "", "Rent"),
		income("1500", day(2025, 6, 1), ""),
		expense("300", day(2025, 6, 10), "", "Rent"),
		income("9999", day(2024, 11, 1), ""),
	}

	got := SpendingTrends(txs, testNow)
	if len(got.Months) != 6 {
		t.Fatalf("got %d months, want 6", len(got.Months))
	}
	if got.Months[0].Month != "2025-01" || got.Months[5].Month != "2025-06" {
		t.Fatalf("window = %s..%s, want 2025-01..2025-06", got.Months[0].Month, got.Months[5].Month)
	}
	june := got.Months[5]
	requireDecimal(t, "june savings", june.Savings, "1200")
	if june.SavingsRate != 80 {
		t.Fatalf("june savings rate = %v, want 80", june.SavingsRate)
	}
	if got.IncomeChange != 50 {
		t.Fatalf("income change = %v, want 50", got.IncomeChange)
	}
	if got.ExpenseChange != -25 {
		t.Fatalf("expense change = %v, want -25", got.ExpenseChange)
	}
}

func TestSpendingTrendsEdgeCases(t *testing.T) {
	t.Run("previous zero current positive", func(t *testing.T) {
		txs := []models.Transaction{
			expense("50", day(2025, 5, 3), "", "Books"),
			income("200", day(2025, 6, 3), ""),
		}
		got := SpendingTrends(txs, testNow)
		if got.IncomeChange != 100 {
			t.Fatalf("income change = %v, want 100", got.IncomeChange)
		}
		if got.ExpenseChange != -100 {
			t.Fatalf("expense change = %v, want -100", got.ExpenseChange)
		}
	})

	t.Run("both zero", func(t *testing.T) {
		txs := []models.Transaction{
			expense("50", day(2025, 5, 3), "", "Books"),
			expense("20", day(2025, 6, 3), "", "Books"),
		}
		got := SpendingTrends(txs, testNow)
		if got.IncomeChange != 0 {
			t.Fatalf("income change = %v, want 0", got.IncomeChange)
		}
	})

	t.Run("no previous month", func(t *testing.T) {
		txs := []models.Transaction{income("200", day(2025, 6, 3), "")}
		got := SpendingTrends(txs, testNow)
		if got.IncomeChange != 0 || got.ExpenseChange != 0 {
			t.Fatalf("changes without a previous month = %v/%v, want 0/0", got.IncomeChange, got.ExpenseChange)
		}
	})

	t.Run("credit purchase excluded", func(t *testing.T) {
		txs := []models.Transaction{creditPurchase("1200", 12, day(2025, 6, 2))}
		got := SpendingTrends(txs, testNow)
		if !got.Months[5].Expense.IsZero() {
			t.Fatalf("credit purchase counted in trend expense: %s", got.Months[5].Expense)
		}
	})
}

func TestDailySpending(t *testing.T) {
	txs := []models.Transaction{
		expense("10", day(2025, 6, 15), "", "Lunch"),
		expense("5", time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC), "", "Snack"),
		expense("7", day(2025, 5, 17), "", "First day of window"),
		expense("100", day(2025, 5, 16), "", "Outside window"),
		income("1000", day(2025, 6, 10), ""),
		creditPurchase("300", 3, day(2025, 6, 1)),
	}

	got := DailySpending(txs, testNow)
	if len(got) != 30 {
		t.Fatalf("got %d days, want 30", len(got))
	}
	if got[0].Date != "2025-05-17" || got[29].Date != "2025-06-15" {
		t.Fatalf("window = %s..%s", got[0].Date, got[29].Date)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date <= got[i-1].Date {
			t.Fatalf("days not chronological at %d: %s after %s", i, got[i].Date, got[i-1].Date)
		}
	}
	requireDecimal(t, "today", got[29].Amount, "15")
	requireDecimal(t, "first day", got[0].Amount, "7")
	requireDecimal(t, "june 1st", got[15].Amount, "0")
}

func TestTransactionStats(t *testing.T) {
	purchase := creditPurchase("2400", 12, day(2025, 6, 1))
	txs := []models.Transaction{
		income("1000", day(2025, 6, 2), "salary"),
		expense("30", day(2025, 6, 8), "food", "Groceries"),
		expense("70", day(2025, 6, 9), "Food", "Dinner"),
		expense("20", day(2025, 6, 10), "fuel", "Gas"),
		expense("5", day(2025, 6, 11), "", "Coffee"),
		expense("1", day(2025, 6, 12), "", "Gum"),
		purchase,
		{Description: "broken", Amount: decimal.NewFromInt(1), Type: models.TransactionExpense},
	}

	got := TransactionStats(txs, testNow)
	if got.Count != 7 {
		t.Fatalf("count = %d, want 7", got.Count)
	}
	// (1000+30+70+20+5+1)/6, purchase row excluded
	requireDecimal(t, "average", got.AverageAmount, "187.67")
	if got.LargestExpense == nil || got.LargestExpense.Description != "Dinner" {
		t.Fatalf("largest expense = %#v, want Dinner", got.LargestExpense)
	}
	if got.LargestIncome == nil || !got.LargestIncome.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("largest income = %#v", got.LargestIncome)
	}
	if len(got.Recent) != 5 || got.Recent[0].Description != "Gum" {
		t.Fatalf("recent = %#v", got.Recent)
	}
	if got.TopCategories[0].Name != "Food" || got.TopCategories[0].Count != 2 {
		t.Fatalf("top categories = %#v", got.TopCategories)
	}
	if got.DaysSinceFirst != 14 {
		t.Fatalf("days since first = %d, want 14", got.DaysSinceFirst)
	}
	total := 0
	for _, w := range got.Weekdays {
		total += w.Count
	}
	if total != 7 || got.Weekdays[time.Sunday].Day != "Sunday" {
		t.Fatalf("weekday histogram = %#v", got.Weekdays)
	}
	// June 8th 2025 is a Sunday.
	if got.Weekdays[time.Sunday].Count != 2 {
		t.Fatalf("sunday count = %d, want 2", got.Weekdays[time.Sunday].Count)
	}
}

func TestBuildSummary(t *testing.T) {
	purchase := creditPurchase("1200", 12, day(2025, 6, 1))
	txs := []models.Transaction{
		income("2000", day(2025, 6, 1), ""),
		purchase,
		credit.FirstPayment(purchase),
		expense("400", day(2025, 6, 3), "", "Rent"),
	}

	got := BuildSummary(txs)
	requireDecimal(t, "income", got.TotalIncome, "2000")
	requireDecimal(t, "expense", got.TotalExpense, "500")
	requireDecimal(t, "balance", got.Balance, "1500")
	requireDecimal(t, "outstanding", got.CreditOutstanding, "1100")
	if got.SavingsRate != 75 || got.OpenCreditCount != 1 || got.TransactionCount != 4 {
		t.Fatalf("summary = %#v", got)
	}
}
