package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shopzone/internal/adapter/payment"
	"github.com/rl1809/shopzone/internal/adapter/storage"
	"github.com/rl1809/shopzone/internal/core/domain"
	"github.com/rl1809/shopzone/internal/core/pricing"
	"github.com/rl1809/shopzone/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	sessionID     = "stress-session"
	productID     = 1
	quantity      = 3
	totalRequests = 50
	paymentDelay  = 200 * time.Millisecond
)

// staticCatalog serves one product so the run does not depend on the network.
type staticCatalog struct{}

func (staticCatalog) GetProduct(ctx context.Context, id int) (domain.ResolvedProduct, error) {
	if id != productID {
		return domain.ResolvedProduct{}, domain.ErrProductNotFound
	}
	return domain.ResolvedProduct{
		ProductID: productID,
		Title:     "Fjallraven - Foldsack No. 1 Backpack, Fits 15 Laptops",
		UnitPrice: decimal.RequireFromString("109.95"),
		Category:  "men's clothing",
	}, nil
}

func (c staticCatalog) ListProducts(ctx context.Context) ([]domain.ResolvedProduct, error) {
	p, _ := c.GetProduct(ctx, productID)
	return []domain.ResolvedProduct{p}, nil
}

func (staticCatalog) ListCategories(ctx context.Context) ([]string, error) {
	return []string{"men's clothing"}, nil
}

func main() {
	ctx := context.Background()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, service.CartKey(sessionID), service.FavoritesKey(sessionID))

	// Initialize adapter and services
	kv := storage.NewRedisAdapter(rdb, time.Hour)
	sessions := service.NewSessions(service.SessionDeps{
		KV:       kv,
		Resolver: service.NewResolver(staticCatalog{}, time.Second, 4, zap.NewNop()),
		Engine:   pricing.NewEngine(pricing.DefaultConfig()),
		Payment:  payment.NewSimulator(1, paymentDelay, nil),
		Logger:   zap.NewNop(),
	})

	sess, err := sessions.Get(ctx, sessionID)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}
	if err := sess.Cart.AddOrIncrement(ctx, productID, quantity); err != nil {
		log.Fatalf("failed to fill cart: %v", err)
	}

	var transitions atomic.Int32
	sess.Reconciler.Subscribe(func(domain.Transition) { transitions.Add(1) })

	// Counters
	var settledCount, busyCount, emptyCount, otherCount atomic.Int32

	// Spawn concurrent checkouts on the same session
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := sess.Reconciler.Checkout(ctx)
			switch {
			case err == nil:
				settledCount.Add(1)
			case errors.Is(err, domain.ErrAlreadyProcessing):
				busyCount.Add(1)
			case errors.Is(err, domain.ErrEmptyCart):
				emptyCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	settled := settledCount.Load()
	busy := busyCount.Load()
	empty := emptyCount.Load()

	fmt.Println("========== CHECKOUT RACE RESULTS ==========")
	fmt.Printf("Total Requests:     %d\n", totalRequests)
	fmt.Printf("Settled:            %d\n", settled)
	fmt.Printf("Already Processing: %d\n", busy)
	fmt.Printf("Empty Cart:         %d\n", empty)
	fmt.Printf("Other Errors:       %d\n", otherCount.Load())
	fmt.Printf("Transitions:        %d\n", transitions.Load())
	fmt.Printf("Duration:           %v\n", elapsed)
	fmt.Println("===========================================")

	// Assertions
	if settled == 1 && busy+empty == totalRequests-1 {
		fmt.Println("PASS: exactly one checkout settled")
	} else {
		fmt.Printf("FAIL: expected 1 settled and %d rejected, got %d/%d\n",
			totalRequests-1, settled, busy+empty)
	}

	if last := sess.Reconciler.LastOrder(); last != nil {
		fmt.Printf("Order %s total %s\n", last.ID, last.Breakdown.Total.StringFixed(2))
	}

	// Verify the cart was cleared in Redis
	stored, _ := rdb.Get(ctx, service.CartKey(sessionID)).Result()
	fmt.Printf("Final Redis Cart:   %s\n", stored)

	if stored == "[]" {
		fmt.Println("PASS: cart cleared")
	} else {
		fmt.Printf("FAIL: expected empty cart, got %s\n", stored)
	}
}
