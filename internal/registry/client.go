// Package registry - клиент API реестра закупок и сервиса документов.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/senyabanana/auction-service/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	// ConnectionErrorInterval - пауза перед повтором после сетевой ошибки.
	ConnectionErrorInterval = 3 * time.Second
	// TooManyRequestsInterval - пауза перед повтором после 429.
	TooManyRequestsInterval = 10 * time.Second
)

// Client выполняет запросы к реестру закупок и сервису документов.
type Client struct {
	httpClient *http.Client
	tendersURL string
	apiToken   string
	dsURL      string
	dsUser     string
	dsPassword string
	userAgent  string
	log        *logrus.Entry
}

// ClientConfig - параметры подключения к внешним сервисам.
type ClientConfig struct {
	APIHost    string
	APIVersion string
	APIToken   string
	DSHost     string
	DSUser     string
	DSPassword string
	UserAgent  string
	Timeout    time.Duration
}

// NewClient создает новый экземпляр клиента реестра.
func NewClient(cfg ClientConfig, log *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	version := cfg.APIVersion
	if version == "" {
		version = "2.5"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		tendersURL: fmt.Sprintf("%s/api/%s/tenders", cfg.APIHost, version),
		apiToken:   cfg.APIToken,
		dsURL:      cfg.DSHost + "/upload",
		dsUser:     cfg.DSUser,
		dsPassword: cfg.DSPassword,
		userAgent:  cfg.UserAgent,
		log:        log.WithField("component", "registry"),
	}
}

// requestTender выполняет запрос к тендеру и разбирает конверт {"data": ...}.
// Любой неуспешный исход превращается в RetryError: вызывающий цикл решает,
// когда повторять. 409 считается временным конфликтом ресурса.
func (c *Client) requestTender(ctx context.Context, method, tenderID, urlSuffix string, payload any, out any) error {
	log := c.log.WithFields(logrus.Fields{
		"method":    method,
		"tender_id": tenderID,
		"path":      urlSuffix,
	})

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.tendersURL+"/"+tenderID+urlSuffix, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warnf("error requesting tender: %v", err)
		return NewRetryError(ConnectionErrorInterval, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		envelope := struct {
			Data json.RawMessage `json:"data"`
		}{}
		if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			log.Warnf("error decoding tender response: %v", err)
			return NewRetryError(ConnectionErrorInterval, err)
		}
		if envelope.Data == nil {
			log.Warn("unexpected response contents")
			return NewRetryError(ConnectionErrorInterval, fmt.Errorf("no data in response"))
		}
		if out != nil {
			if err = json.Unmarshal(envelope.Data, out); err != nil {
				log.Warnf("error decoding tender data: %v", err)
				return NewRetryError(ConnectionErrorInterval, err)
			}
		}
		return nil
	case resp.StatusCode == http.StatusPreconditionFailed:
		log.Warn("precondition failed while requesting tender")
		return NewRetryError(0, fmt.Errorf("precondition failed"))
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Warn("too many requests while requesting tender")
		return NewRetryError(TooManyRequestsInterval, fmt.Errorf("too many requests"))
	case resp.StatusCode == http.StatusForbidden:
		log.Warnf("skip processing tender %s on 403 response", tenderID)
		return fmt.Errorf("forbidden: %w", ErrSkip)
	case resp.StatusCode == http.StatusConflict:
		log.Warnf("resource error while requesting tender %s", tenderID)
		return NewRetryError(ConnectionErrorInterval, fmt.Errorf("resource conflict"))
	default:
		respText, _ := io.ReadAll(resp.Body)
		log.Errorf("error requesting tender %s %s: %d %s", method, tenderID, resp.StatusCode, respText)
		return NewRetryError(ConnectionErrorInterval, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

// GetTenderDocuments возвращает список документов тендера.
func (c *Client) GetTenderDocuments(ctx context.Context, tenderID string) ([]models.TenderDocument, error) {
	tender := struct {
		Documents []models.TenderDocument `json:"documents"`
	}{}
	if err := c.requestTender(ctx, http.MethodGet, tenderID, "", nil, &tender); err != nil {
		return nil, err
	}
	return tender.Documents, nil
}

// GetTenderBids возвращает предложения участников через служебный эндпоинт /auction.
func (c *Client) GetTenderBids(ctx context.Context, tenderID string) ([]models.TenderBid, error) {
	tender := struct {
		Bids []models.TenderBid `json:"bids"`
	}{}
	if err := c.requestTender(ctx, http.MethodGet, tenderID, "/auction", nil, &tender); err != nil {
		return nil, err
	}
	return tender.Bids, nil
}

// GetTenderPublicBids возвращает предложения из публичной выдачи тендера.
// Пока реестр не раскрыл имена участников, поле bids отсутствует -
// это повод повторить запрос позже.
func (c *Client) GetTenderPublicBids(ctx context.Context, tenderID string) ([]models.TenderBid, error) {
	tender := struct {
		Bids []models.TenderBid `json:"bids"`
	}{}
	if err := c.requestTender(ctx, http.MethodGet, tenderID, "", nil, &tender); err != nil {
		return nil, err
	}
	if tender.Bids == nil {
		c.log.Warnf("bids info not public yet: %s", tenderID)
		return nil, NewRetryError(ConnectionErrorInterval, fmt.Errorf("bids not public yet"))
	}
	return tender.Bids, nil
}

// PostTenderAuction отправляет результаты аукциона в реестр.
func (c *Client) PostTenderAuction(ctx context.Context, tenderID string, patch *models.ResultsPatch) error {
	return c.requestTender(ctx, http.MethodPost, tenderID, "/auction", patch, nil)
}

// PublishTenderDocument публикует документ у тендера: POST для нового,
// PUT для новой версии существующего.
func (c *Client) PublishTenderDocument(ctx context.Context, tenderID string, doc json.RawMessage, docID string) error {
	method := http.MethodPost
	urlSuffix := "/documents"
	if docID != "" {
		method = http.MethodPut
		urlSuffix = "/documents/" + docID
	}
	payload := map[string]json.RawMessage{"data": doc}
	return c.requestTender(ctx, method, tenderID, urlSuffix, payload, nil)
}

// UploadDocument загружает файл в сервис документов и возвращает
// метаданные документа для последующей публикации у тендера.
// Повторяет загрузку с экспоненциальной паузой, пока не истечет контекст.
func (c *Client) UploadDocument(ctx context.Context, fileName string, content []byte) (json.RawMessage, error) {
	operation := func() (json.RawMessage, error) {
		return c.uploadDocumentOnce(ctx, fileName, content)
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.RetryWithData(operation, policy)
}

func (c *Client) uploadDocumentOnce(ctx context.Context, fileName string, content []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build form: %w", err))
	}
	if _, err = part.Write(content); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("write form: %w", err))
	}
	if err = form.Close(); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("close form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dsURL, &buf)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.SetBasicAuth(c.dsUser, c.dsPassword)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnf("error on file upload: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respText, _ := io.ReadAll(resp.Body)
		c.log.Warnf("error on file upload %s: %d %s", fileName, resp.StatusCode, respText)
		return nil, fmt.Errorf("upload status %d", resp.StatusCode)
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.log.Warnf("error decoding upload response: %v", err)
		return nil, err
	}
	return envelope.Data, nil
}
