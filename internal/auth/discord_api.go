package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxDiscordResponseSize はDiscord APIレスポンスの最大読み取りサイズ。
const maxDiscordResponseSize = 1 << 20

// DiscordAPIError はDiscord APIが200以外のステータスを返したことを表す。
type DiscordAPIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *DiscordAPIError) Error() string {
	return fmt.Sprintf("discord api %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// getDiscordJSON はDiscord APIにGETリクエストを送り、JSONレスポンスをoutにデコードする。
// authHeaderが空の場合はclient側の認証（oauth2トランスポート）に任せる。
func getDiscordJSON(ctx context.Context, client *http.Client, rawURL, authHeader string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscordResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &DiscordAPIError{Endpoint: req.URL.Path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
