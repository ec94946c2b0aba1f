// Command orders-admin is the baker's back-office tool: list open orders and
// advance them through the fulfillment statuses (paid -> baked -> shipped).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/ovenworks/breadstore/internal/domain/order"
	"github.com/ovenworks/breadstore/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		status      string
		limit       int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&status, "status", "", "filter listed orders by status (paid, baked, shipped)")
	flag.IntVar(&limit, "limit", 50, "maximum orders to list")
	flag.Usage = usage
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, status, limit, flag.Args()); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: orders-admin [flags] <command> [args]

Commands:
  list                    list orders, newest first
  show <order-id>         print one order in full
  mark-baked <order-id>   mark a paid order as baked
  mark-shipped <order-id> mark a baked order as shipped

Flags:
`)
	flag.PrintDefaults()
}

func run(ctx context.Context, databaseURL, status string, limit int, args []string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewOrderRepository(pool)

	switch cmd := args[0]; cmd {
	case "list":
		return listOrders(ctx, repo, order.Status(status), limit)
	case "show":
		if len(args) < 2 {
			return errors.New("show requires an order ID")
		}
		return showOrder(ctx, repo, args[1])
	case "mark-baked":
		if len(args) < 2 {
			return errors.New("mark-baked requires an order ID")
		}
		return advance(ctx, repo, args[1], order.StatusPaid, order.StatusBaked)
	case "mark-shipped":
		if len(args) < 2 {
			return errors.New("mark-shipped requires an order ID")
		}
		return advance(ctx, repo, args[1], order.StatusBaked, order.StatusShipped)
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func listOrders(ctx context.Context, repo *postgres.OrderRepository, status order.Status, limit int) error {
	if status != "" && !order.ValidStatus(status) {
		return errors.Errorf("invalid status %q", status)
	}

	orders, err := repo.List(ctx, status, limit)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}
	if len(orders) == 0 {
		slog.Info("no orders found")
		return nil
	}

	for _, o := range orders {
		fmt.Printf("%s  %-7s  %2d item(s)  $%s  %s  %s\n",
			o.CreatedAt.Format("2006-01-02 15:04"),
			o.Status, o.Quantity(), o.TotalUSD.StringFixed(2), o.ID, o.CustomerName)
	}
	return nil
}

func showOrder(ctx context.Context, repo *postgres.OrderRepository, id string) error {
	o, err := repo.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "get order")
	}

	fmt.Printf("Order %s (%s)\n", o.ID, o.Status)
	fmt.Printf("  Placed:   %s\n", o.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Customer: %s <%s>\n", o.CustomerName, o.Email)
	fmt.Printf("  Ship to:  %s, %s, %s %s\n", o.Address, o.City, o.State, o.Zip)
	for _, it := range o.Items {
		fmt.Printf("  Item:     %d x %s @ $%s\n", it.Qty, it.Product, it.Price.StringFixed(2))
	}
	fmt.Printf("  Shipping: %s\n", o.ShippingOption)
	fmt.Printf("  Total:    $%s\n", o.TotalUSD.StringFixed(2))
	fmt.Printf("  Payment:  %s (%s)\n", o.PaymentMethod, o.PaymentChain)
	if o.TxHash != "" {
		fmt.Printf("  Tx:       %s\n", o.TxHash)
	}
	if o.Notes != "" {
		fmt.Printf("  Notes:    %s\n", o.Notes)
	}
	return nil
}

func advance(ctx context.Context, repo *postgres.OrderRepository, id string, from, to order.Status) error {
	o, err := repo.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "get order")
	}
	if o.Status != from {
		return errors.Errorf("order is %s, expected %s", o.Status, from)
	}

	if err := repo.UpdateStatus(ctx, id, to); err != nil {
		return errors.Wrap(err, "update status")
	}

	slog.Info("order updated", slog.String("id", id), slog.String("status", string(to)))
	return nil
}
