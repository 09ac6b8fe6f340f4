// Package cli runs the interactive trading menu on a terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/logger"
	"github.com/danyeu/fx/internal/portfolio"
	"github.com/danyeu/fx/internal/rates"
	"github.com/danyeu/fx/internal/trader"
)

const dateLayout = "2006-01-02 15:04:05.000000"

// Trader is the part of trader.Service the menu drives.
type Trader interface {
	Init(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	Start() trader.Money
	Base() fx.Currency
	Currencies() []fx.Currency
	QuoteTTL() time.Duration
	ParseCurrency(code string) (fx.Currency, error)
	Available(ctx context.Context, curr fx.Currency) (fx.Amount, error)
	Portfolio(ctx context.Context) (trader.Valuation, error)
	Rates(ctx context.Context, side rates.Side) ([]trader.CurrencyRate, error)
	QuoteBuy(ctx context.Context, curr fx.Currency, quantity string) (*trader.Quote, error)
	QuoteSell(ctx context.Context, curr fx.Currency, quantity string) (*trader.Quote, error)
	Confirm(ctx context.Context, id uuid.UUID) (portfolio.Entry, error)
	Cancel(id uuid.UUID) error
	History(ctx context.Context) ([]portfolio.Entry, error)
}

var errTimeout = errors.New("input timed out")

// Menu reads choices from in and writes to out.
type Menu struct {
	svc   Trader
	out   io.Writer
	lines chan string
}

// NewMenu starts reading lines from in in the background.
func NewMenu(svc Trader, in io.Reader, out io.Writer) *Menu {
	m := &Menu{svc: svc, out: out, lines: make(chan string)}
	go func() {
		defer close(m.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			m.lines <- sc.Text()
		}
	}()
	return m
}

func (m *Menu) println(a ...any) {
	fmt.Fprintln(m.out, a...)
}

func (m *Menu) printf(format string, a ...any) {
	fmt.Fprintf(m.out, format, a...)
}

// prompt prints p and waits for a line. A zero timeout waits forever.
func (m *Menu) prompt(ctx context.Context, p string, timeout time.Duration) (string, error) {
	m.printf("%s", p)
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case line, ok := <-m.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	case <-expired:
		m.println()
		return "", errTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run shows the menu until the user exits or the input ends.
func (m *Menu) Run(ctx context.Context) error {
	m.println("=== Currency Trader ===")
	fresh, err := m.svc.Init(ctx)
	if err != nil {
		return err
	}
	if fresh {
		m.printf("You start with %v\n\n", m.svc.Start())
	} else {
		m.println("Welcome back")
		m.println()
	}

	for {
		m.println("=== Main Menu ===")
		m.println("1. Portfolio")
		m.println("2. FX Rates")
		m.println("3. Buy FX")
		m.println("4. Sell FX")
		m.println("5. History")
		m.println("6. Reset")
		m.println("7. Exit")

		choice, err := m.choice(ctx)
		if err != nil {
			return m.exit(err)
		}
		m.println()

		switch choice {
		case "1":
			err = m.portfolio(ctx)
		case "2":
			err = m.rates(ctx)
		case "3":
			err = m.trade(ctx, rates.Buy)
		case "4":
			err = m.trade(ctx, rates.Sell)
		case "5":
			err = m.history(ctx)
		case "6":
			err = m.reset(ctx)
		case "7":
			m.println("Goodbye!")
			return nil
		}
		if err != nil {
			return m.exit(err)
		}
	}
}

// exit treats the end of input as a normal exit.
func (m *Menu) exit(err error) error {
	if errors.Is(err, io.EOF) {
		m.println()
		m.println("Goodbye!")
		return nil
	}
	return err
}

func (m *Menu) choice(ctx context.Context) (string, error) {
	for {
		choice, err := m.prompt(ctx, "\tChoice: ", 0)
		if err != nil {
			return "", err
		}
		if len(choice) == 1 && choice[0] >= '1' && choice[0] <= '7' {
			return choice, nil
		}
	}
}

// failed reports a service error to the user. Only input and context
// errors end the menu.
func (m *Menu) failed(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return err
	}
	logger.Warn(what+" failed", zap.Error(err))
	m.printf("\t%s failed: %v\n\n", what, err)
	return nil
}

func (m *Menu) portfolio(ctx context.Context) error {
	v, err := m.svc.Portfolio(ctx)
	if err != nil {
		return m.failed("Portfolio", err)
	}
	m.println("=== Portfolio ===")
	for _, h := range v.Holdings {
		m.printf("%v: %v\n", h.Currency, h.Amount)
	}
	m.printf("Value: %v %v\n", v.Base, v.Value)
	m.printf("Return: %v%%\n\n", v.Return)
	return nil
}

func (m *Menu) rates(ctx context.Context) error {
	quoted, err := m.svc.Rates(ctx, rates.Buy)
	if err != nil {
		return m.failed("FX Rates", err)
	}
	m.println("=== FX Rates ===")
	for _, r := range quoted {
		m.printf("1 %v = %v %v\n", m.svc.Base(), r.Currency, r.Rate)
	}
	m.println()
	return nil
}

func (m *Menu) trade(ctx context.Context, side rates.Side) error {
	verb, title := "buy", "=== Buy FX ==="
	if side == rates.Sell {
		verb, title = "sell", "=== Sell FX ==="
	}
	m.println(title)

	codes := make([]string, 0, len(m.svc.Currencies()))
	for _, c := range m.svc.Currencies() {
		codes = append(codes, c.Code())
	}
	m.printf("Currencies available: %s\n", strings.Join(codes, ", "))
	code, err := m.prompt(ctx, fmt.Sprintf("\tCurrency to %s: ", verb), 0)
	if err != nil {
		return err
	}
	curr, err := m.svc.ParseCurrency(code)
	if err != nil {
		m.println("\tInvalid currency")
		m.println()
		return nil
	}

	spentCurr, action := m.svc.Base(), "spend"
	if side == rates.Sell {
		spentCurr, action = curr, "sell"
	}
	held, err := m.svc.Available(ctx, spentCurr)
	if err != nil {
		return m.failed("Trade", err)
	}
	m.printf("%v available: %v\n", spentCurr, held)
	quantity, err := m.prompt(ctx, fmt.Sprintf("\tQuantity of %v to %s: ", spentCurr, action), 0)
	if err != nil {
		return err
	}

	var q *trader.Quote
	if side == rates.Buy {
		q, err = m.svc.QuoteBuy(ctx, curr, quantity)
	} else {
		q, err = m.svc.QuoteSell(ctx, curr, quantity)
	}
	switch {
	case errors.Is(err, trader.ErrInvalidQuantity):
		m.println("\tInvalid quantity: non-numeric or too precise")
		m.println()
		return nil
	case errors.Is(err, trader.ErrZeroQuantity):
		m.println("\tInvalid quantity: zero")
		m.println()
		return nil
	case errors.Is(err, trader.ErrInsufficientFunds):
		m.println("\tInsufficient funds")
		m.println()
		return nil
	case err != nil:
		return m.failed("Quote", err)
	}

	return m.confirm(ctx, q)
}

func (m *Menu) confirm(ctx context.Context, q *trader.Quote) error {
	ttl := m.svc.QuoteTTL()
	m.printf("Quote expires in %d seconds\n", int(math.Ceil(ttl.Seconds())))
	m.printf("\t%v\n", q)

	answer, err := m.prompt(ctx, "\t\tConfirm (y/n): ", ttl)
	if errors.Is(err, errTimeout) {
		_ = m.svc.Cancel(q.ID)
		m.println("\t\tQuote expired")
		m.println()
		return nil
	}
	if err != nil {
		_ = m.svc.Cancel(q.ID)
		return err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		_, err := m.svc.Confirm(ctx, q.ID)
		switch {
		case errors.Is(err, trader.ErrQuoteExpired), errors.Is(err, trader.ErrQuoteNotFound):
			m.println("\t\tQuote expired")
		case errors.Is(err, trader.ErrInsufficientFunds):
			m.println("\t\tInsufficient funds")
		case err != nil:
			return m.failed("Trade", err)
		default:
			m.println("\t\tConfirmed")
		}
	case "n", "no":
		_ = m.svc.Cancel(q.ID)
		m.println("\t\tCancelled")
	default:
		_ = m.svc.Cancel(q.ID)
		m.println("\t\tInvalid confirmation")
	}
	m.println()
	return nil
}

func (m *Menu) history(ctx context.Context) error {
	entries, err := m.svc.History(ctx)
	if err != nil {
		return m.failed("History", err)
	}
	base := m.svc.Base()
	m.println("=== History ===")
	for _, e := range entries {
		date := e.CreatedAt.Local().Format(dateLayout)
		if e.Kind == portfolio.KindStart {
			m.printf("%s\tStarting: \t%v %v\n", date, base, e.DeltaBase)
			continue
		}
		m.printf("%s\t%v %v\t%v %v\n", date, e.Currency, e.DeltaFX, base, e.DeltaBase)
	}
	m.println()
	return nil
}

func (m *Menu) reset(ctx context.Context) error {
	m.println("=== Reset Portfolio ===")
	m.println("Portfolio will be wiped")
	for {
		answer, err := m.prompt(ctx, "Confirm (y/n): ", 0)
		if err != nil {
			return err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			if err := m.svc.Reset(ctx); err != nil {
				return m.failed("Reset", err)
			}
			m.printf("You start with %v\n\n", m.svc.Start())
			return nil
		case "n", "no":
			m.println("Cancelled")
			m.println()
			return nil
		}
	}
}
