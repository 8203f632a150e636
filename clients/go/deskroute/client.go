// Package deskroute provides a client for the deskroute support routing API.
package deskroute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a deskroute API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new deskroute client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("deskroute error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// SubmitRequest is the request body for a web-form submission.
type SubmitRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject,omitempty"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

// SubmitResponse is the response from a web-form submission.
type SubmitResponse struct {
	TicketID  string `json:"ticket_id"`
	Status    string `json:"status"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Escalated bool   `json:"escalated"`
	Reply     string `json:"reply"`
}

// Submit sends a support request through the web-form channel.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	body, _ := json.Marshal(req)
	respBody, err := c.doRequest("POST", "/support/submit", body)
	if err != nil {
		return nil, err
	}

	var resp SubmitResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ticket is the ticket status view.
type Ticket struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	ConversationID  string     `json:"conversation_id"`
	SourceChannel   string     `json:"source_channel"`
	Category        string     `json:"category,omitempty"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// TicketStatus fetches a ticket by id.
func (c *Client) TicketStatus(id string) (*Ticket, error) {
	respBody, err := c.doRequest("GET", "/support/ticket/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var ticket Ticket
	if err := json.Unmarshal(respBody, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Customer is the customer identity view.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Summary is the rolling conversation summary for a customer.
type Summary struct {
	MessageCount    int      `json:"message_count"`
	ChannelsSeen    []string `json:"channels_seen"`
	ChannelSwitches int      `json:"channel_switches"`
	AvgSentiment    float64  `json:"avg_sentiment"`
	TopTopics       []string `json:"top_topics"`
	Resolution      string   `json:"resolution"`
}

// LookupResponse is the customer lookup view.
type LookupResponse struct {
	Customer *Customer `json:"customer"`
	Summary  *Summary  `json:"summary,omitempty"`
}

// LookupByEmail fetches a customer and their conversation summary by email.
func (c *Client) LookupByEmail(email string) (*LookupResponse, error) {
	respBody, err := c.doRequest("GET", "/customers/lookup?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}

	var resp LookupResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the health check view.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Health checks service health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
