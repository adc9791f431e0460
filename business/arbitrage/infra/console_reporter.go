// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/avelez-dev/dexarb/business/arbitrage/app"
	"github.com/avelez-dev/dexarb/business/arbitrage/domain"
	scannerDomain "github.com/avelez-dev/dexarb/business/scanner/domain"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	approvedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// Ensure ConsoleReporter implements Reporter.
var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a reporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// ReportScan prints a one-line summary of the round.
func (r *ConsoleReporter) ReportScan(result *scannerDomain.ScanResult) {
	line := fmt.Sprintf("[%s] scan: %d pairs, %d routes, %d opportunities, %d errors (%s)",
		time.Now().Format("15:04:05"),
		result.PairsScanned,
		result.RoutesScanned,
		len(result.Opportunities),
		len(result.Errors),
		result.Duration.Round(time.Millisecond),
	)
	if len(result.Opportunities) > 0 {
		fmt.Fprintln(r.out, warnStyle.Render(line))
	} else {
		fmt.Fprintln(r.out, dimStyle.Render(line))
	}
}

// ReportDecision prints the chain's verdict for one candidate.
func (r *ConsoleReporter) ReportDecision(opp scannerDomain.Opportunity, decision domain.Decision) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, headerStyle.Render("================================================================================"))
	if decision.Allowed {
		fmt.Fprintln(r.out, approvedStyle.Render("APPROVED  "+opp.PairLabel()))
	} else {
		fmt.Fprintln(r.out, rejectedStyle.Render(fmt.Sprintf("REJECTED  %s  at %s: %s", opp.PairLabel(), decision.Stage, decision.Reason)))
	}
	fmt.Fprintln(r.out, headerStyle.Render("================================================================================"))

	fmt.Fprintf(r.out, "ID:        %s\n", opp.OpportunityID())
	fmt.Fprintf(r.out, "Kind:      %s\n", opp.Kind())
	fmt.Fprintf(r.out, "Principal: %s\n", opp.Principal().String())
	fmt.Fprintf(r.out, "Gross:     %s (%d bps)\n", opp.Profit().String(), opp.ProfitBps())

	for _, leg := range opp.Route() {
		fmt.Fprintf(r.out, "  %-10s %s -> %s  out=%s\n",
			leg.Venue.Name,
			leg.TokenIn.Symbol(),
			leg.TokenOut.Symbol(),
			leg.AmountOut.String(),
		)
	}

	if b := decision.Breakdown; b != nil {
		fmt.Fprintln(r.out, dimStyle.Render("--------------------------------------------------------------------------------"))
		fmt.Fprintf(r.out, "Trade:     %s ($%s)\n", b.TradeAmount.StringFixed(6), b.TradeAmountUSD.StringFixed(2))
		if b.Gas != nil {
			fmt.Fprintf(r.out, "Gas:       %s native ($%s)\n", b.Gas.CostNative.StringFixed(6), b.Gas.CostUSD.StringFixed(2))
		}
		fmt.Fprintf(r.out, "Flash fee: %s\n", b.FlashLoanFee.StringFixed(8))
		fmt.Fprintf(r.out, "Slippage:  %s\n", b.Slippage.StringFixed(8))
		fmt.Fprintf(r.out, "Net:       %s ($%s, %s bps)\n",
			b.NetProfit.StringFixed(8), b.NetProfitUSD.StringFixed(2), b.NetProfitBps.StringFixed(2))
	}

	fmt.Fprintln(r.out, dimStyle.Render("--------------------------------------------------------------------------------"))
	for _, g := range decision.Results {
		mark := approvedStyle.Render("pass")
		if !g.Passed {
			mark = rejectedStyle.Render("FAIL")
		}
		fmt.Fprintf(r.out, "  [%s] %-18s %s\n", mark, g.Guard, g.Metric)
	}
	fmt.Fprintln(r.out, headerStyle.Render("================================================================================"))
}
