package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"staylook-store/internal/cart"
	"staylook-store/internal/collection"
	"staylook-store/internal/config"
	"staylook-store/internal/db"
	"staylook-store/internal/logger"
	"staylook-store/internal/session"
	"staylook-store/internal/storage/local"
	"staylook-store/internal/storage/postgres"
	"staylook-store/internal/storefront"
	"staylook-store/internal/wishlist"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const demoUserID = "demo-user"

var openDBFunc = db.NewDatabase

func main() {
	if err := run(context.Background(), os.Stdout); err != nil {
		logger.L().Fatal("demo failed", zap.Error(err))
	}
}

func run(ctx context.Context, out io.Writer) error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := openDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return runScenario(ctx, cfg, newRemote(database), out)
}

func newRemote(database *sql.DB) *postgres.Repository {
	return postgres.NewRepository(database, map[collection.Kind]collection.MergeFunc{
		collection.KindCart:     cart.Merger(),
		collection.KindWishlist: wishlist.Merger(),
	})
}

// runScenario fills a guest cart and wishlist, signs in, and prints both
// collections before and after the guest data is merged.
func runScenario(ctx context.Context, cfg *config.Config, remote collection.RemoteStore, out io.Writer) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	tokens := session.NewTokens(cfg.JWTSecret, time.Hour)
	var outMu sync.Mutex
	scope := storefront.NewScope(ctx, storefront.Deps{
		Local:    local.New(cfg.GuestTTL, time.Hour),
		Remote:   remote,
		Provider: session.NewProvider(session.Anonymous()),
		Tokens:   tokens,
		Options: collection.Options{
			Timeout: cfg.PersistTimeout,
			Limiter: rate.NewLimiter(rate.Limit(cfg.PersistRate), cfg.PersistBurst),
			OnError: func(f *collection.Failure) {
				outMu.Lock()
				defer outMu.Unlock()
				fmt.Fprintf(out, "! %v\n", f)
			},
		},
	})
	scope.Open()
	defer scope.Close()

	scope.Cart.AddEntry(cart.Entry{ProductID: "A", VariantKey: "M", Quantity: 2, UnitPrice: decimal.NewFromInt(100), Name: "Linen shirt"})
	scope.Cart.AddEntry(cart.Entry{ProductID: "A", VariantKey: "M", Quantity: 1, UnitPrice: decimal.NewFromInt(100), Name: "Linen shirt"})
	scope.Wishlist.AddEntry(wishlist.Entry{ProductID: "B", Name: "Canvas tote"})
	scope.Wishlist.AddEntry(wishlist.Entry{ProductID: "C", Name: "Wool scarf"})
	scope.Cart.Flush()
	scope.Wishlist.Flush()

	printScope(out, "guest", scope)

	token, err := tokens.Issue(demoUserID, "")
	if err != nil {
		return err
	}
	if err := scope.SignIn(token); err != nil {
		return err
	}

	printScope(out, "signed in as "+demoUserID, scope)
	return nil
}

func printScope(out io.Writer, title string, scope *storefront.Scope) {
	c := scope.Cart.State()
	w := scope.Wishlist.State()

	fmt.Fprintf(out, "== %s ==\n", title)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "cart\tproduct\tvariant\tqty\tline total")
	for _, e := range c.Entries {
		fmt.Fprintf(tw, "\t%s\t%s\t%d\t%s\n", e.ProductID, e.VariantKey, e.Quantity, e.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\titems %d\t\t\tsubtotal %s\n", c.ItemCount, c.Subtotal.StringFixed(2))
	fmt.Fprintln(tw, "wishlist\tproduct\tname\t\t")
	for _, e := range w.Entries {
		fmt.Fprintf(tw, "\t%s\t%s\t\t\n", e.ProductID, e.Name)
	}
	tw.Flush()
}
