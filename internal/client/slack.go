// 외부 Slack API와 통신하는 클라이언트 정의
// Client 레이어에서만 사용하는 구조체 및 Slack 공통 메서드 정의
//
// 환경변수:
//   - SLACK_BOT_TOKEN: Slack Bot Token (xoxb-...)
//   - SLACK_CHANNEL_ID: Slack 채널 ID (C...)
//
// Webhook 대신 Bot Token을 사용하는 이유:
//   - thread_ts 반환: 메시지 전송 후 timestamp를 받아 쓰레드 관리 가능
//   - 인터랙션: Silence 버튼 액션을 같은 봇으로 수신 가능

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ops-triage/backend/internal/config"
)

// SlackClient 구조체 정의
type SlackClient struct {
	botToken   string
	channelID  string
	httpClient *http.Client

	// threadMap: alert_id -> thread_ts 매핑
	// resolved/피드백 메시지를 원래 알림 쓰레드로 보내기 위함
	// sync.Map 사용 이유: 여러 알림이 동시에 처리될 수 있음
	threadMap sync.Map
}

// SlackMessage - chat.postMessage 요청 본문
type SlackMessage struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
	ThreadTS    string            `json:"thread_ts,omitempty"`
}

// SlackAttachment - 메시지 포맷 (색상, 필드, 버튼)
type SlackAttachment struct {
	Color      string        `json:"color"`
	Title      string        `json:"title"`
	Text       string        `json:"text"`
	Footer     string        `json:"footer,omitempty"`
	FooterIcon string        `json:"footer_icon,omitempty"`
	Ts         int64         `json:"ts,omitempty"`
	Fields     []SlackField  `json:"fields,omitempty"`
	CallbackID string        `json:"callback_id,omitempty"`
	Actions    []SlackAction `json:"actions,omitempty"`
}

// SlackField - attachment 필드
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SlackAction - attachment 버튼 (Silence 액션)
type SlackAction struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Style string `json:"style,omitempty"`
}

// SlackResponse - 메시지 응답
type SlackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// SlackClient 객체 생성
func NewSlackClient(cfg config.SlackConfig) *SlackClient {
	return &SlackClient{
		botToken:  cfg.BotToken,
		channelID: cfg.ChannelID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsConfigured - Bot Token과 Channel ID가 모두 설정되어 있는지 체크
func (c *SlackClient) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

// StoreThreadTS - alert_id의 쓰레드 timestamp 저장
func (c *SlackClient) StoreThreadTS(alertID, threadTS string) {
	c.threadMap.Store(alertID, threadTS)
}

// GetThreadTS - alert_id의 쓰레드 timestamp 조회
func (c *SlackClient) GetThreadTS(alertID string) (string, bool) {
	if value, ok := c.threadMap.Load(alertID); ok {
		if ts, ok := value.(string); ok && ts != "" {
			return ts, true
		}
	}
	return "", false
}

// DeleteThreadTS - 메모리 정리
func (c *SlackClient) DeleteThreadTS(alertID string) {
	c.threadMap.Delete(alertID)
}

// SendToThread - 기존 쓰레드에 텍스트 메시지 전송
func (c *SlackClient) SendToThread(threadTS, text string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}
	msg := SlackMessage{
		Channel:  c.channelID,
		Text:     text,
		ThreadTS: threadTS,
	}
	_, err := c.send(msg)
	return err
}

// Slack API 호출
func (c *SlackClient) send(msg SlackMessage) (*SlackResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequest("POST", "https://slack.com/api/chat.postMessage", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}
	return &slackResp, nil
}
