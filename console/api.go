package console

import (
	"context"
	"fmt"
	"net/http"
)

// ------------------ Session ------------------

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/login", Body: LoginRequest{Username: username, Password: password}}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{Kind: KindUnknown, Status: http.StatusOK, Message: "login response carried no token", Method: http.MethodPost, Path: "/login"}
	}
	return &resp, nil
}

// Me returns the authenticated administrator.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/user"}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ------------------ Books ------------------

func (c *Client) ListBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/books"}, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) CreateBook(ctx context.Context, f BookForm) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/books", Body: f}, nil)
}

func (c *Client) UpdateBook(ctx context.Context, id int64, f BookForm) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: fmt.Sprintf("/books/%d", id), Body: f}, nil)
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/books/%d", id)}, nil)
}

// ------------------ Users ------------------

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/users"}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, f UserForm) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/users", Body: f}, nil)
}

func (c *Client) UpdateUser(ctx context.Context, id int64, f UserForm) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: fmt.Sprintf("/users/%d", id), Body: f}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/users/%d", id)}, nil)
}

// ------------------ Circulation ------------------

func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/transactions"}, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, f BorrowForm) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: fmt.Sprintf("/transactions/%d", id), Body: f}, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/transactions/%d", id)}, nil)
}

// Borrow lends a book; the API decrements its availability.
func (c *Client) Borrow(ctx context.Context, f BorrowForm) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/borrow", Body: f}, nil)
}

// Return closes a transaction; the API increments availability.
func (c *Client) Return(ctx context.Context, id int64) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: fmt.Sprintf("/return/%d", id), Body: struct{}{}}, nil)
}
