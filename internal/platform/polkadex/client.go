package polkadex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/polkadexbot/internal/domain"
)

// Client is a GraphQL client for the Polkadex orderbook service. Every call
// waits for a permit from the rate limiter under the operation's limit id
// before hitting the wire.
type Client struct {
	graphqlURL string
	authToken  string
	limiter    domain.RateLimiter
	httpClient *http.Client
}

// NewClient creates a new Polkadex GraphQL client.
//
// authToken identifies the caller to the service; the venue accepts the
// account address itself as the token.
func NewClient(graphqlURL, authToken string, limiter domain.RateLimiter) *Client {
	return &Client{
		graphqlURL: graphqlURL,
		authToken:  strings.TrimSpace(authToken),
		limiter:    limiter,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// AllAssets fetches the venue's asset registry.
func (c *Client) AllAssets(ctx context.Context) ([]AssetInfo, error) {
	query := `
		query GetAllAssets {
			getAllAssets {
				items {
					asset_id
					name
				}
			}
		}
	`

	respData, err := c.doQuery(ctx, LimitAllAssets, query, nil)
	if err != nil {
		return nil, fmt.Errorf("polkadex: fetch assets: %w", err)
	}

	var result struct {
		GetAllAssets struct {
			Items []AssetInfo `json:"items"`
		} `json:"getAllAssets"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode assets: %w", err)
	}

	return result.GetAllAssets.Items, nil
}

// AllMarkets fetches the venue's market registry.
func (c *Client) AllMarkets(ctx context.Context) ([]MarketInfo, error) {
	query := `
		query GetAllMarkets {
			getAllMarkets {
				items {
					market
					max_order_price
					min_order_price
					min_order_qty
					max_order_qty
					price_tick_size
					qty_step_size
				}
			}
		}
	`

	respData, err := c.doQuery(ctx, LimitAllMarkets, query, nil)
	if err != nil {
		return nil, fmt.Errorf("polkadex: fetch markets: %w", err)
	}

	var result struct {
		GetAllMarkets struct {
			Items []MarketInfo `json:"items"`
		} `json:"getAllMarkets"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode markets: %w", err)
	}

	return result.GetAllMarkets.Items, nil
}

// Orderbook fetches the aggregated orderbook levels for a market.
func (c *Client) Orderbook(ctx context.Context, market string) ([]OrderbookEntry, error) {
	query := `
		query GetOrderbook($market: String!, $limit: Int, $nextToken: String) {
			getOrderbook(market: $market, limit: $limit, nextToken: $nextToken) {
				items {
					p
					q
					s
					stid
				}
				nextToken
			}
		}
	`
	variables := map[string]any{"market": market}

	respData, err := c.doQuery(ctx, LimitOrderbook, query, variables)
	if err != nil {
		return nil, fmt.Errorf("polkadex: fetch orderbook %s: %w", market, err)
	}

	var result struct {
		GetOrderbook struct {
			Items []OrderbookEntry `json:"items"`
		} `json:"getOrderbook"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode orderbook %s: %w", market, err)
	}

	return result.GetOrderbook.Items, nil
}

// MainAccountFromProxy resolves the funding account registered for a proxy
// trading account.
func (c *Client) MainAccountFromProxy(ctx context.Context, proxyAccount string) (string, error) {
	query := `
		query FindUserByProxyAccount($proxy_account: String!) {
			findUserByProxyAccount(proxy_account: $proxy_account) {
				items {
					hash_key
					range_key
					stid
				}
			}
		}
	`
	variables := map[string]any{"proxy_account": proxyAccount}

	respData, err := c.doQuery(ctx, LimitFindUser, query, variables)
	if err != nil {
		return "", fmt.Errorf("polkadex: find user %s: %w", proxyAccount, err)
	}

	var result struct {
		FindUserByProxyAccount struct {
			Items []struct {
				HashKey  string `json:"hash_key"`
				RangeKey string `json:"range_key"`
			} `json:"items"`
		} `json:"findUserByProxyAccount"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return "", fmt.Errorf("polkadex: decode find user: %w", err)
	}

	items := result.FindUserByProxyAccount.Items
	if len(items) == 0 || items[0].RangeKey == "" {
		return "", fmt.Errorf("polkadex: no main account registered for proxy %s", proxyAccount)
	}

	return items[0].RangeKey, nil
}

// RecentTrades fetches the most recent public trades for a market.
func (c *Client) RecentTrades(ctx context.Context, market string, limit int) ([]RecentTrade, error) {
	query := `
		query GetRecentTrades($market: String!, $limit: Int, $nextToken: String) {
			getRecentTrades(m: $market, limit: $limit, nextToken: $nextToken) {
				items {
					isReverted
					m
					p
					q
					t
				}
			}
		}
	`
	variables := map[string]any{"market": market, "limit": limit}

	respData, err := c.doQuery(ctx, LimitRecentTrades, query, variables)
	if err != nil {
		return nil, fmt.Errorf("polkadex: fetch recent trades %s: %w", market, err)
	}

	var result struct {
		GetRecentTrades struct {
			Items []RecentTrade `json:"items"`
		} `json:"getRecentTrades"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode recent trades %s: %w", market, err)
	}

	return result.GetRecentTrades.Items, nil
}

// AllBalances fetches every asset balance held by a main account.
func (c *Client) AllBalances(ctx context.Context, mainAccount string) ([]BalanceEntry, error) {
	query := `
		query GetAllBalancesByMainAccount($main: String!) {
			getAllBalancesByMainAccount(main_account: $main) {
				items {
					a
					f
					r
				}
			}
		}
	`
	variables := map[string]any{"main": mainAccount}

	respData, err := c.doQuery(ctx, LimitAllBalances, query, variables)
	if err != nil {
		return nil, fmt.Errorf("polkadex: fetch balances: %w", err)
	}

	var result struct {
		GetAllBalancesByMainAccount struct {
			Items []BalanceEntry `json:"items"`
		} `json:"getAllBalancesByMainAccount"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode balances: %w", err)
	}

	return result.GetAllBalancesByMainAccount.Items, nil
}

// OrderFills fetches the account trades that settled within [from, to].
func (c *Client) OrderFills(ctx context.Context, mainAccount string, from, to time.Time) ([]FillEntry, error) {
	query := `
		query ListTradesByMainAccount(
			$main_account: String!
			$limit: Int
			$from: AWSDateTime!
			$to: AWSDateTime!
			$nextToken: String
		) {
			listTradesByMainAccount(
				main_account: $main_account
				from: $from
				to: $to
				limit: $limit
				nextToken: $nextToken
			) {
				items {
					isReverted
					m
					m_id
					p
					q
					stid
					t
					t_id
					trade_id
				}
			}
		}
	`
	variables := map[string]any{
		"main_account": mainAccount,
		"from":         awsDateTime(from),
		"to":           awsDateTime(to),
	}

	respData, err := c.doQuery(ctx, LimitAllFills, query, variables)
	if err != nil {
		return nil, fmt.Errorf("polkadex: fetch fills: %w", err)
	}

	var result struct {
		ListTradesByMainAccount struct {
			Items []FillEntry `json:"items"`
		} `json:"listTradesByMainAccount"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode fills: %w", err)
	}

	return result.ListTradesByMainAccount.Items, nil
}

// PlaceOrder submits a signed order and returns the exchange order id. The
// order body and the signature must cover the same encoded payload.
func (c *Client) PlaceOrder(ctx context.Context, order OrderSubmission, signature Signature) (string, error) {
	query := `
		mutation PlaceOrder($payload: String!) {
			place_order(input: {payload: $payload})
		}
	`

	payload, err := json.Marshal(map[string]any{
		"PlaceOrder": []any{order, signature},
	})
	if err != nil {
		return "", fmt.Errorf("polkadex: marshal place order payload: %w", err)
	}
	variables := map[string]any{"payload": string(payload)}

	respData, err := c.doQuery(ctx, LimitPlaceOrder, query, variables)
	if err != nil {
		return "", fmt.Errorf("polkadex: place order %s: %w", order.ClientOrderID, err)
	}

	var result struct {
		PlaceOrder string `json:"place_order"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return "", fmt.Errorf("polkadex: decode place order response: %w", err)
	}

	// The mutation result is itself a JSON document in a string.
	var outcome struct {
		IsSuccess bool   `json:"is_success"`
		Body      string `json:"body"`
	}
	if err := json.Unmarshal([]byte(result.PlaceOrder), &outcome); err != nil {
		return "", fmt.Errorf("polkadex: decode place order outcome: %w", err)
	}

	if !outcome.IsSuccess || outcome.Body == "" {
		return "", fmt.Errorf("polkadex: place order %s rejected: %s: %w",
			order.ClientOrderID, outcome.Body, domain.ErrPlacementFailed)
	}

	return outcome.Body, nil
}

// CancelOrder submits a signed cancel request for an exchange order id and
// reports whether the venue accepted it.
func (c *Client) CancelOrder(ctx context.Context, orderID, market, mainAddress, proxyAddress string, signature Signature) (bool, error) {
	query := `
		mutation CancelOrder($payload: String!) {
			cancel_order(input: {payload: $payload})
		}
	`

	payload, err := json.Marshal(map[string]any{
		"CancelOrder": []any{orderID, mainAddress, proxyAddress, market, signature},
	})
	if err != nil {
		return false, fmt.Errorf("polkadex: marshal cancel payload: %w", err)
	}
	variables := map[string]any{"payload": string(payload)}

	respData, err := c.doQuery(ctx, LimitCancelOrder, query, variables)
	if err != nil {
		return false, fmt.Errorf("polkadex: cancel order %s: %w", orderID, err)
	}

	var result struct {
		CancelOrder bool `json:"cancel_order"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return false, fmt.Errorf("polkadex: decode cancel response: %w", err)
	}

	return result.CancelOrder, nil
}

// FindOrder looks up a single order by its exchange order id. It returns
// nil without error when the venue does not know the order.
func (c *Client) FindOrder(ctx context.Context, mainAccount, market, orderID string) (*OrderEntry, error) {
	query := `
		query FindOrder($main_account: String!, $market: String!, $order_id: String!) {
			findOrderByMainAccount(main_account: $main_account, market: $market, order_id: $order_id) {
				afp
				cid
				fee
				fq
				id
				isReverted
				m
				ot
				p
				q
				s
				st
				stid
				t
				u
			}
		}
	`
	variables := map[string]any{
		"main_account": mainAccount,
		"market":       market,
		"order_id":     orderID,
	}

	respData, err := c.doQuery(ctx, LimitOrderUpdate, query, variables)
	if err != nil {
		return nil, fmt.Errorf("polkadex: find order %s: %w", orderID, err)
	}

	var result struct {
		FindOrderByMainAccount *OrderEntry `json:"findOrderByMainAccount"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode find order: %w", err)
	}

	return result.FindOrderByMainAccount, nil
}

// ListOpenOrders fetches every order of the account that is still resting.
func (c *Client) ListOpenOrders(ctx context.Context, mainAccount string) ([]OrderEntry, error) {
	query := `
		query ListOpenOrdersByMainAccount($main_account: String!, $limit: Int, $nextToken: String) {
			listOpenOrdersByMainAccount(main_account: $main_account, limit: $limit, nextToken: $nextToken) {
				items {
					u
					cid
					id
					t
					m
					s
					ot
					st
					p
					q
					afp
					fq
					fee
					stid
					isReverted
				}
			}
		}
	`
	variables := map[string]any{"main_account": mainAccount}

	respData, err := c.doQuery(ctx, LimitListOpenOrders, query, variables)
	if err != nil {
		return nil, fmt.Errorf("polkadex: list open orders: %w", err)
	}

	var result struct {
		ListOpenOrdersByMainAccount struct {
			Items []OrderEntry `json:"items"`
		} `json:"listOpenOrdersByMainAccount"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode open orders: %w", err)
	}

	return result.ListOpenOrdersByMainAccount.Items, nil
}

// ListOrderHistory fetches the account's orders updated within [from, to].
func (c *Client) ListOrderHistory(ctx context.Context, mainAccount string, from, to time.Time) ([]OrderEntry, error) {
	query := `
		query ListOrderHistory(
			$main_account: String!
			$limit: Int
			$from: AWSDateTime!
			$to: AWSDateTime!
			$nextToken: String
		) {
			listOrderHistorybyMainAccount(
				main_account: $main_account
				from: $from
				to: $to
				limit: $limit
				nextToken: $nextToken
			) {
				items {
					u
					cid
					id
					t
					m
					s
					ot
					st
					p
					q
					afp
					fq
					fee
					isReverted
				}
			}
		}
	`
	variables := map[string]any{
		"main_account": mainAccount,
		"from":         awsDateTime(from),
		"to":           awsDateTime(to),
	}

	respData, err := c.doQuery(ctx, LimitAllFills, query, variables)
	if err != nil {
		return nil, fmt.Errorf("polkadex: list order history: %w", err)
	}

	var result struct {
		ListOrderHistorybyMainAccount struct {
			Items []OrderEntry `json:"items"`
		} `json:"listOrderHistorybyMainAccount"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("polkadex: decode order history: %w", err)
	}

	return result.ListOrderHistorybyMainAccount.Items, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doQuery waits on the limit id, executes a GraphQL operation against the
// venue and returns the raw "data" field from the response.
func (c *Client) doQuery(ctx context.Context, limitID, query string, variables map[string]any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx, limitID); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", limitID, err)
	}

	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}

// awsDateTime formats a timestamp the way the venue's AWSDateTime scalar
// expects: UTC ISO-8601 with millisecond precision and a Z suffix.
func awsDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
