// Пакет speech — HTTP-клиент речевого сервиса Azure Cognitive Services.
// Операции: выпуск bearer-токена по ключу подписки (issuetoken),
// список голосов (voices/list) и синтез речи по SSML (cognitiveservices/v1).
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Адреса Azure по умолчанию. {region} заменяется регионом ключа.
const (
	DefaultTokenEndpoint = "https://{region}.api.cognitive.microsoft.com/sts/v1.0/issuetoken"
	DefaultTTSEndpoint   = "https://{region}.tts.speech.microsoft.com/cognitiveservices"
)

const (
	// fallbackTokenTTL — время жизни токена без читаемого exp (Azure выдаёт на 10 минут).
	fallbackTokenTTL = 9 * time.Minute
	// tokenRefreshMargin — запас до истечения, после которого токен обновляется.
	tokenRefreshMargin = 30 * time.Second
	userAgent          = "tts-studio"
)

var (
	// ErrRejected — речевой сервис отклонил ключ подписки или регион.
	ErrRejected = errors.New("ключ или регион речевого сервиса отклонены")
	// ErrUnavailable — речевой сервис недоступен или вернул ошибку.
	ErrUnavailable = errors.New("речевой сервис недоступен")
)

// Credentials — ключ подписки и регион.
type Credentials struct {
	Key    string
	Region string
}

// VoiceInfo — элемент ответа voices/list.
type VoiceInfo struct {
	Name        string `json:"Name"`
	DisplayName string `json:"DisplayName"`
	LocalName   string `json:"LocalName"`
	ShortName   string `json:"ShortName"`
	Gender      string `json:"Gender"`
	Locale      string `json:"Locale"`
	LocaleName  string `json:"LocaleName"`
	VoiceType   string `json:"VoiceType,omitempty"`
}

// LanguageName возвращает название языка без страны: "Czech (Czechia)" → "Czech".
func (v VoiceInfo) LanguageName() string {
	name, _, _ := strings.Cut(v.LocaleName, " ")
	return name
}

// SpeakerSex возвращает первую букву пола голоса ("F", "M") или "U".
func (v VoiceInfo) SpeakerSex() string {
	if v.Gender == "" {
		return "U"
	}
	return strings.ToUpper(v.Gender[:1])
}

// Options — настройки клиента.
type Options struct {
	// TokenEndpoint — шаблон адреса issuetoken (по умолчанию DefaultTokenEndpoint).
	TokenEndpoint string
	// TTSEndpoint — шаблон базового адреса TTS (по умолчанию DefaultTTSEndpoint).
	TTSEndpoint string
	// OutputFormat — значение X-Microsoft-OutputFormat.
	OutputFormat string
	// Timeout — таймаут HTTP-запросов.
	Timeout time.Duration
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Client — клиент речевого сервиса.
// Bearer-токены кэшируются по паре (регион, ключ) до истечения.
type Client struct {
	httpClient    *http.Client
	tokenEndpoint string
	ttsEndpoint   string
	outputFormat  string
	logger        *slog.Logger

	mu     sync.Mutex
	tokens map[Credentials]cachedToken
	now    func() time.Time
}

// New создаёт клиент речевого сервиса.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.TokenEndpoint == "" {
		opts.TokenEndpoint = DefaultTokenEndpoint
	}
	if opts.TTSEndpoint == "" {
		opts.TTSEndpoint = DefaultTTSEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient:    &http.Client{Timeout: opts.Timeout},
		tokenEndpoint: opts.TokenEndpoint,
		ttsEndpoint:   strings.TrimRight(opts.TTSEndpoint, "/"),
		outputFormat:  opts.OutputFormat,
		logger:        logger.With(slog.String("component", "speech_client")),
		tokens:        make(map[Credentials]cachedToken),
		now:           time.Now,
	}
}

// Validate проверяет ключ и регион, запрашивая новый bearer-токен.
// ErrRejected — ключ не принят.
func (c *Client) Validate(ctx context.Context, cred Credentials) error {
	_, err := c.issueToken(ctx, cred)
	return err
}

// Voices возвращает список голосов, доступных в регионе ключа.
func (c *Client) Voices(ctx context.Context, cred Credentials) ([]VoiceInfo, error) {
	token, err := c.bearer(ctx, cred)
	if err != nil {
		return nil, err
	}

	reqURL := expandRegion(c.ttsEndpoint, cred.Region) + "/voices/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса voices/list: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: voices/list: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("voices/list", resp)
	}

	var voices []VoiceInfo
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("%w: декодирование voices/list: %v", ErrUnavailable, err)
	}

	c.logger.Debug("Получен список голосов",
		slog.String("region", cred.Region),
		slog.Int("count", len(voices)),
	)
	return voices, nil
}

// Synthesize озвучивает SSML-документ и возвращает аудио в формате OutputFormat.
func (c *Client) Synthesize(ctx context.Context, cred Credentials, ssml string) ([]byte, error) {
	token, err := c.bearer(ctx, cred)
	if err != nil {
		return nil, err
	}

	reqURL := expandRegion(c.ttsEndpoint, cred.Region) + "/v1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("создание запроса синтеза: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("User-Agent", userAgent)
	if c.outputFormat != "" {
		req.Header.Set("X-Microsoft-OutputFormat", c.outputFormat)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: синтез: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			c.forget(cred)
		}
		return nil, statusError("синтез", resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: чтение аудио: %v", ErrUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: пустой ответ синтеза", ErrUnavailable)
	}
	return audio, nil
}

// bearer возвращает закэшированный или новый bearer-токен.
func (c *Client) bearer(ctx context.Context, cred Credentials) (string, error) {
	c.mu.Lock()
	cached, ok := c.tokens[cred]
	c.mu.Unlock()

	if ok && c.now().Before(cached.expiresAt.Add(-tokenRefreshMargin)) {
		return cached.value, nil
	}
	return c.issueToken(ctx, cred)
}

// issueToken обменивает ключ подписки на bearer-токен и кэширует его.
func (c *Client) issueToken(ctx context.Context, cred Credentials) (string, error) {
	reqURL := expandRegion(c.tokenEndpoint, cred.Region)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("создание запроса issuetoken: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", cred.Key)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: issuetoken: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("issuetoken", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: чтение токена: %v", ErrUnavailable, err)
	}
	token := string(bytes.TrimSpace(body))
	if token == "" {
		return "", fmt.Errorf("%w: пустой токен", ErrUnavailable)
	}

	expiresAt := c.tokenExpiry(token)
	c.mu.Lock()
	c.tokens[cred] = cachedToken{value: token, expiresAt: expiresAt}
	c.mu.Unlock()

	c.logger.Debug("Получен bearer-токен речевого сервиса",
		slog.String("region", cred.Region),
		slog.Time("expires_at", expiresAt),
	)
	return token, nil
}

// tokenExpiry читает exp из JWT без проверки подписи.
// Если exp не читается — используется fallbackTokenTTL.
func (c *Client) tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return c.now().Add(fallbackTokenTTL)
}

func (c *Client) forget(cred Credentials) {
	c.mu.Lock()
	delete(c.tokens, cred)
	c.mu.Unlock()
}

// statusError превращает неуспешный ответ в ErrRejected (401/403) или ErrUnavailable.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s вернул статус %d", ErrRejected, op, resp.StatusCode)
	}
	return fmt.Errorf("%w: %s вернул статус %d: %s", ErrUnavailable, op, resp.StatusCode, string(body))
}

func expandRegion(tmpl, region string) string {
	return strings.ReplaceAll(tmpl, "{region}", region)
}
