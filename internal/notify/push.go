package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"autoservice/internal/config"
)

// PushClient отправляет шаблонные уведомления во внешний push-провайдер.
// Провайдер адресует получателей по auth UID клиента, не по внутреннему id.
type PushClient struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	staffSegment string
}

type pushRequest struct {
	TemplateID string            `json:"template_id"`
	Recipient  string            `json:"recipient,omitempty"`
	Segment    string            `json:"segment,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
}

func NewPushClient(cfg config.PushConfig) *PushClient {
	return &PushClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		staffSegment: "staff",
	}
}

func (c *PushClient) Name() string { return "push" }

// Send отправляет одно уведомление по шаблону
func (c *PushClient) Send(ctx context.Context, req pushRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client-Id", c.clientID)
	httpReq.Header.Set("X-Client-Secret", c.clientSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("push provider returned non-OK status: %s", resp.Status)
	}
	return nil
}

func (c *PushClient) NotifyStaff(ctx context.Context, message string) error {
	return c.Send(ctx, pushRequest{
		TemplateID: "new_booking",
		Segment:    c.staffSegment,
		Variables:  map[string]string{"message": message},
	})
}

func (c *PushClient) NotifyCustomer(ctx context.Context, recipientUID, templateID, message string) error {
	if recipientUID == "" {
		return fmt.Errorf("customer recipient uid is empty")
	}
	return c.Send(ctx, pushRequest{
		TemplateID: templateID,
		Recipient:  recipientUID,
		Variables:  map[string]string{"message": message},
	})
}
