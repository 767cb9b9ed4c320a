// Package pizza is the demo toolset served by the mystic command: a small
// pizzeria that lists its menu, takes orders, and reports their status.
package pizza

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

// Type is a pizza on the menu.
type Type string

// Pizzas on the menu.
const (
	Margherita Type = "margherita"
	Pepperoni  Type = "pepperoni"
	Veggie     Type = "veggie"
)

var types = []Type{Margherita, Pepperoni, Veggie}

// EnumValues lists the accepted pizza types.
func (Type) EnumValues() []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// MenuItem is a pizza's display name and price.
type MenuItem struct {
	Name  string
	Price float64
}

var menu = map[Type]MenuItem{
	Margherita: {Name: "Margherita", Price: 12.99},
	Pepperoni:  {Name: "Pepperoni", Price: 15.99},
	Veggie:     {Name: "Veggie Deluxe", Price: 14.99},
}

// Order is a placed order.
type Order struct {
	ID       string
	Pizza    string
	Price    float64
	Customer string
	Status   string
}

// Shop keeps the orders placed during the process lifetime.
type Shop struct {
	mu     sync.Mutex
	orders map[string]Order
}

// NewShop returns a shop with no orders.
func NewShop() *Shop {
	return &Shop{orders: make(map[string]Order)}
}

// OrderArgs are the parameters of OrderPizza.
type OrderArgs struct {
	PizzaType    Type   `json:"pizza_type" jsonschema:"The pizza to order"`
	CustomerName string `json:"customer_name" default:"Customer" jsonschema:"Name the order is placed under"`
}

// CheckArgs are the parameters of CheckOrder.
type CheckArgs struct {
	OrderID string `json:"order_id" jsonschema:"Your order ID"`
}

// GetMenu lists the pizzas with their prices.
func (s *Shop) GetMenu(ctx context.Context, _ struct{}) *toolbox.Future[string] {
	return toolbox.Go(ctx, func(context.Context) (string, error) {
		var b strings.Builder
		b.WriteString("MENU:\n")
		for _, t := range types {
			item := menu[t]
			fmt.Fprintf(&b, "- %s: $%.2f\n", item.Name, item.Price)
		}
		return b.String(), nil
	})
}

// OrderPizza places an order and returns its summary.
func (s *Shop) OrderPizza(_ context.Context, in OrderArgs) (string, error) {
	item, ok := menu[in.PizzaType]
	if !ok {
		return fmt.Sprintf("Sorry, we don't have %s. Try: %s", in.PizzaType, strings.Join(Type("").EnumValues(), ", ")), nil
	}

	s.mu.Lock()
	id := fmt.Sprintf("order-%d", len(s.orders)+1)
	s.orders[id] = Order{
		ID:       id,
		Pizza:    item.Name,
		Price:    item.Price,
		Customer: in.CustomerName,
		Status:   "preparing",
	}
	s.mu.Unlock()

	return fmt.Sprintf("Order %s: %s for %s - $%.2f", id, item.Name, in.CustomerName, item.Price), nil
}

// CheckOrder reports the status of an order.
func (s *Shop) CheckOrder(_ context.Context, in CheckArgs) *toolbox.Future[string] {
	s.mu.Lock()
	o, ok := s.orders[in.OrderID]
	s.mu.Unlock()

	if !ok {
		return toolbox.Resolved(fmt.Sprintf("Order %s not found", in.OrderID), nil)
	}

	return toolbox.Resolved(fmt.Sprintf("Order %s: %s for %s - Status: %s", o.ID, o.Pizza, o.Customer, o.Status), nil)
}

// Orders returns a snapshot of the placed orders.
func (s *Shop) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// Register adds the shop's tools to tb.
func Register(tb *toolbox.ToolBox, s *Shop) error {
	if _, err := toolbox.RegisterAsync(tb, s.GetMenu, toolbox.WithDescription("Get the pizza menu")); err != nil {
		return fmt.Errorf("pizza: %w", err)
	}
	if _, err := toolbox.Register(tb, s.OrderPizza, toolbox.WithDescription("Order a pizza")); err != nil {
		return fmt.Errorf("pizza: %w", err)
	}
	if _, err := toolbox.RegisterAsync(tb, s.CheckOrder, toolbox.WithDescription("Check order status")); err != nil {
		return fmt.Errorf("pizza: %w", err)
	}

	return nil
}
