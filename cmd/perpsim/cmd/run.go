package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"perpsim/engine"
	"perpsim/feed"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive session against a random-walk feed",
	Long: `Drives the engine from a seeded random-walk price feed and accepts
trading commands on stdin:

  buy <qty> [price]     market or limit buy
  sell <qty> [price]    market or limit sell
  cancel <order-id>     cancel a working order
  close                 close the open position at market
  lev <n>               set leverage
  mode <cross|isolated> set margin mode
  tpsl <tp> <sl>        set take-profit / stop-loss (0 disables)
  deposit <amt>         deposit
  withdraw <amt>        withdraw
  note <text>           add an annotation
  acct | pos | orders | book | tape
  quit`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	src := feed.NewRandomWalk(cfg.Feed.StartPrice, cfg.Feed.StepBps, time.Now(), cfg.FeedInterval(), cfg.Feed.Seed)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	ticker := time.NewTicker(cfg.FeedInterval())
	defer ticker.Stop()

	log.WithFields(log.Fields{
		"symbol":   cfg.Market.Symbol,
		"interval": cfg.Feed.Interval,
	}).Info("session started")

	for {
		select {
		case <-ticker.C:
			t, _ := src.Next()
			if err := s.eng.Tick(t.Mid, t.Time); err != nil {
				log.Errorf("tick: %v", err)
				continue
			}
			s.save()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.handle(strings.Fields(line)); quit {
				return nil
			}
		}
	}
}

// handle executes one interactive command; it returns true on quit.
// Every failure surfaces as a reason string, never a crash.
func (s *session) handle(args []string) bool {
	if len(args) == 0 {
		return false
	}

	var err error
	mutated := true

	switch args[0] {
	case "quit", "exit":
		return true

	case "buy", "sell":
		err = s.placeOrder(args)

	case "cancel":
		if len(args) != 2 {
			err = fmt.Errorf("usage: cancel <order-id>")
			break
		}
		err = s.eng.CancelOrder(args[1])

	case "close":
		err = s.eng.ClosePosition()

	case "lev":
		var v int
		if len(args) != 2 {
			err = fmt.Errorf("usage: lev <n>")
			break
		}
		if v, err = strconv.Atoi(args[1]); err == nil {
			err = s.eng.SetLeverage(v)
		}

	case "mode":
		if len(args) != 2 {
			err = fmt.Errorf("usage: mode <cross|isolated>")
			break
		}
		mode := engine.Cross
		if strings.EqualFold(args[1], "isolated") {
			mode = engine.Isolated
		}
		err = s.eng.SetMarginMode(mode)

	case "tpsl":
		var tp, sl decimal.Decimal
		if len(args) != 3 {
			err = fmt.Errorf("usage: tpsl <tp> <sl>")
			break
		}
		if tp, err = decimal.NewFromString(args[1]); err != nil {
			break
		}
		if sl, err = decimal.NewFromString(args[2]); err != nil {
			break
		}
		err = s.eng.SetTpSl(tp, sl)

	case "deposit", "withdraw":
		var amt decimal.Decimal
		if len(args) != 2 {
			err = fmt.Errorf("usage: %s <amount>", args[0])
			break
		}
		if amt, err = decimal.NewFromString(args[1]); err != nil {
			break
		}
		if args[0] == "deposit" {
			err = s.eng.Deposit(amt)
		} else {
			err = s.eng.Withdraw(amt)
		}

	case "note":
		st := s.eng.State()
		s.eng.SetAnnotations(append(st.Annotations, strings.Join(args[1:], " ")))

	case "acct":
		printAccount(s.eng.Snapshot())
		mutated = false
	case "pos":
		printPosition(s.eng.Snapshot())
		mutated = false
	case "orders":
		printOrders(s.eng.Snapshot())
		mutated = false
	case "book":
		printBook(s.eng.Snapshot())
		mutated = false
	case "tape":
		printTape(s.eng.Snapshot())
		mutated = false

	default:
		fmt.Printf("unknown command %q\n", args[0])
		mutated = false
	}

	if err != nil {
		log.Warnf("%s rejected: %v", args[0], err)
		return false
	}
	if mutated {
		s.save()
	}
	return false
}

func (s *session) placeOrder(args []string) error {
	side := engine.Buy
	if args[0] == "sell" {
		side = engine.Sell
	}
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: %s <qty> [price]", args[0])
	}

	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		return err
	}

	typ := engine.Market
	price := decimal.Zero
	if len(args) == 3 {
		typ = engine.Limit
		if price, err = decimal.NewFromString(args[2]); err != nil {
			return err
		}
	}

	o, err := s.eng.PlaceOrder(side, typ, qty, price)
	if err != nil {
		return err
	}
	fmt.Printf("order %s %s %s %s filled=%s\n", o.ID, o.Side, o.Type, o.Status, o.FilledQty)
	return nil
}

func printAccount(snap engine.Snapshot) {
	a := snap.Account
	fmt.Printf("mark=%s wallet=%s available=%s equity=%s upnl=%s mm=%s ratio=%s lev=%dx mode=%s\n",
		snap.Mark.StringFixed(0), a.WalletBalance.StringFixed(0), a.AvailableBalance.StringFixed(0),
		a.Equity.StringFixed(0), a.UnrealizedPnl.StringFixed(0), a.MaintenanceMargin.StringFixed(0),
		a.MarginRatio.StringFixed(4), a.Leverage, a.MarginMode)
}

func printPosition(snap engine.Snapshot) {
	p := snap.Position
	if p == nil {
		fmt.Println("no open position")
		return
	}
	fmt.Printf("%s %s @ %s mark=%s pnl=%s roe=%s%% liq~%s tp=%s sl=%s\n",
		p.Side, p.Qty, p.Entry.StringFixed(0), p.Mark.StringFixed(0),
		p.UnrealizedPnl.StringFixed(0), p.ROE.StringFixed(2),
		p.LiquidationPrice.StringFixed(0), p.TakeProfit.StringFixed(0), p.StopLoss.StringFixed(0))
}

func printOrders(snap engine.Snapshot) {
	if len(snap.Orders) == 0 {
		fmt.Println("no working orders")
		return
	}
	for _, o := range snap.Orders {
		fmt.Printf("%s  %-4s %-6s qty=%s filled=%s price=%s %s\n",
			o.ID, o.Side, o.Type, o.Qty, o.FilledQty, o.Price, o.Status)
	}
}

func printBook(snap engine.Snapshot) {
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		lv := snap.Asks[i]
		fmt.Printf("  ask %s  %s (+%s own)\n", lv.Price.StringFixed(0), lv.SyntheticQty, lv.OwnQty)
	}
	fmt.Printf("  --- mark %s ---\n", snap.Mark.StringFixed(0))
	for _, lv := range snap.Bids {
		fmt.Printf("  bid %s  %s (+%s own)\n", lv.Price.StringFixed(0), lv.SyntheticQty, lv.OwnQty)
	}
}

func printTape(snap engine.Snapshot) {
	for _, t := range snap.Tape {
		role := "taker"
		if t.Maker {
			role = "maker"
		}
		fmt.Printf("%s  %-4s %s @ %s (%s)\n", t.Time.Format("15:04:05"), t.Side, t.Qty, t.Price.StringFixed(0), role)
	}
}
