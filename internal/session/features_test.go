package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"hoja/internal/catalog"
	"hoja/internal/payment"
	"hoja/internal/review"
	"hoja/internal/zk"
	"hoja/pkg/domain"
	"hoja/pkg/kv"
	"hoja/pkg/logger"
)

const profileID = "profile-acceptance"

type storefrontTestContext struct {
	store    *kv.MemoryStore
	catalog  *catalog.Service
	reviews  *review.Service
	registry *Registry
	session  *Session
	proofID  string
	review   *domain.Review
	err      error
}

func (c *storefrontTestContext) boot() {
	log := logger.NewNop()
	c.catalog = catalog.NewService(catalog.NewMemoryRepository(catalog.Seed()), nil, log)
	c.reviews = review.NewService(review.NewMemoryRepository(), c.catalog, false, log)
	c.registry = NewRegistry(Options{
		Store:          c.store,
		ProofKeyPrefix: "hoja-proofs",
		Catalog:        c.catalog,
		Executor:       payment.NewSimulatedExecutor(0, log),
		Issuer:         zk.NewIssuer(0),
		PaymentTimeout: time.Second,
		IdleTTL:        time.Hour,
	}, log)
	c.session = c.registry.Get(context.Background(), profileID)
}

func (c *storefrontTestContext) aFreshBrowserProfile() error {
	c.store = kv.NewMemoryStore()
	c.proofID = ""
	c.review = nil
	c.err = nil
	c.boot()
	return nil
}

func (c *storefrontTestContext) itemID(restaurantID, name string) (string, error) {
	r, err := c.catalog.Get(context.Background(), restaurantID)
	if err != nil {
		return "", err
	}
	for _, item := range r.Menu {
		if item.Name == name {
			return item.ID, nil
		}
	}
	return "", fmt.Errorf("no %q on the menu of restaurant %s", name, restaurantID)
}

func (c *storefrontTestContext) iAddFromRestaurantToMyCart(quantity int, name, restaurantID string) error {
	id, err := c.itemID(restaurantID, name)
	if err != nil {
		return err
	}
	line, err := c.catalog.CartLine(context.Background(), restaurantID, id, quantity)
	if err != nil {
		return err
	}
	c.session.Cart.Add(line)
	return nil
}

func (c *storefrontTestContext) myCartHoldsItemsTotalling(items int, total string) error {
	snap := c.session.Cart.Snapshot()
	if snap.TotalItems != items {
		return fmt.Errorf("expected %d items, got %d", items, snap.TotalItems)
	}
	if !snap.TotalPrice.Equal(decimal.RequireFromString(total)) {
		return fmt.Errorf("expected total %s, got %s", total, snap.TotalPrice)
	}
	return nil
}

func (c *storefrontTestContext) iCheckOutOn(network string) error {
	p, err := c.session.Checkout.Pay(context.Background(), network)
	if err != nil {
		return err
	}
	c.proofID = p.ID
	return nil
}

func (c *storefrontTestContext) iHavePaidForAt(quantity int, name, restaurantID string) error {
	if err := c.iAddFromRestaurantToMyCart(quantity, name, restaurantID); err != nil {
		return err
	}
	return c.iCheckOutOn("ethereum")
}

func (c *storefrontTestContext) iHoldUnusedProofForRestaurantWithLineItems(count int, restaurantID string, lines int) error {
	unused := c.session.Proofs.Unused(restaurantID)
	if len(unused) != count {
		return fmt.Errorf("expected %d unused proofs, got %d", count, len(unused))
	}
	for _, p := range unused {
		if len(p.LineItems) != lines {
			return fmt.Errorf("expected %d line items, got %d", lines, len(p.LineItems))
		}
	}
	return nil
}

func (c *storefrontTestContext) myCartIsEmpty() error {
	if !c.session.Cart.Snapshot().Empty() {
		return errors.New("expected an empty cart")
	}
	return nil
}

func (c *storefrontTestContext) submit(restaurantID string, rating int, proofID string) error {
	c.review, c.err = c.reviews.Submit(context.Background(), c.session.Proofs, review.SubmitRequest{
		RestaurantID: restaurantID,
		ProofID:      proofID,
		Rating:       rating,
		Text:         "Reviewed in an acceptance test",
	})
	return nil
}

func (c *storefrontTestContext) iReviewRestaurantWithRatingUsingMyProof(restaurantID string, rating int) error {
	return c.submit(restaurantID, rating, c.proofID)
}

func (c *storefrontTestContext) iReviewRestaurantWithRatingUsingProof(restaurantID string, rating int, proofID string) error {
	return c.submit(restaurantID, rating, proofID)
}

func (c *storefrontTestContext) theReviewIsVerified() error {
	if c.err != nil {
		return fmt.Errorf("expected review but got error: %v", c.err)
	}
	if !c.review.Verified {
		return errors.New("expected a verified review")
	}
	return nil
}

func (c *storefrontTestContext) theReviewIsRejectedWith(message string) error {
	if c.err == nil {
		return errors.New("expected the review to be rejected")
	}
	if c.err.Error() != message {
		return fmt.Errorf("expected %q, got %q", message, c.err.Error())
	}
	return nil
}

func (c *storefrontTestContext) proofUsed(want bool) error {
	p, ok := c.session.Proofs.Get(c.proofID)
	if !ok {
		return fmt.Errorf("proof %s not found", c.proofID)
	}
	if p.Used != want {
		return fmt.Errorf("expected used=%v, got %v", want, p.Used)
	}
	return nil
}

func (c *storefrontTestContext) myProofIsUsed() error   { return c.proofUsed(true) }
func (c *storefrontTestContext) myProofIsUnused() error { return c.proofUsed(false) }

func (c *storefrontTestContext) theStorefrontRestarts() error {
	if err := c.registry.Close(context.Background()); err != nil {
		return err
	}
	c.boot()
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storefrontTestContext{}

	// Given steps
	ctx.Step(`^a fresh browser profile$`, tc.aFreshBrowserProfile)
	ctx.Step(`^I have paid for (\d+) "([^"]*)" at restaurant "([^"]*)"$`, tc.iHavePaidForAt)

	// When steps
	ctx.Step(`^I add (\d+) "([^"]*)" from restaurant "([^"]*)" to my cart$`, tc.iAddFromRestaurantToMyCart)
	ctx.Step(`^I check out on "([^"]*)"$`, tc.iCheckOutOn)
	ctx.Step(`^I review restaurant "([^"]*)" with rating (\d+) using my proof$`, tc.iReviewRestaurantWithRatingUsingMyProof)
	ctx.Step(`^I review restaurant "([^"]*)" with rating (\d+) using proof "([^"]*)"$`, tc.iReviewRestaurantWithRatingUsingProof)
	ctx.Step(`^the storefront restarts$`, tc.theStorefrontRestarts)

	// Then steps
	ctx.Step(`^my cart holds (\d+) items totalling "([^"]*)"$`, tc.myCartHoldsItemsTotalling)
	ctx.Step(`^I hold (\d+) unused proof for restaurant "([^"]*)" with (\d+) line items$`, tc.iHoldUnusedProofForRestaurantWithLineItems)
	ctx.Step(`^my cart is empty$`, tc.myCartIsEmpty)
	ctx.Step(`^the review is verified$`, tc.theReviewIsVerified)
	ctx.Step(`^the review is rejected with "([^"]*)"$`, tc.theReviewIsRejectedWith)
	ctx.Step(`^my proof is used$`, tc.myProofIsUsed)
	ctx.Step(`^my proof is unused$`, tc.myProofIsUnused)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features/review_with_proof.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
