// Package safetyalert integrates the SafeKorea disaster-SMS search. The
// endpoint is unauthenticated; fetches search a rolling seven-day window
// for up to three region codes. The server still negotiates TLS
// parameters modern defaults reject, so the descriptor asks for a
// legacy-TLS session.
package safetyalert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/kparse"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	ServiceID = "safety_alert"

	searchURL  = "https://www.safekorea.go.kr/idsiSFK/sfk/cs/sua/web/DisasterSmsList.do"
	windowDays = 7
	pageSize   = 50
)

const DefaultInterval = 5 * time.Minute

type Client struct {
	session   *integration.Session
	creds     model.Credentials
	logger    *slog.Logger
	searchURL string

	nowFn func() time.Time
}

func NewClient(session *integration.Session, creds model.Credentials, logger *slog.Logger) *Client {
	return &Client{session: session, creds: creds, logger: logger, searchURL: searchURL, nowFn: func() time.Time { return time.Now().In(kparse.Seoul) }}
}

// Login checks the configured region; the search endpoint itself needs
// no handshake.
func (c *Client) Login(ctx context.Context) error {
	if c.creds.Get("area_code") == "" {
		return integration.SetupErr(ServiceID, fmt.Errorf("area_code is required"))
	}
	return nil
}

type searchResponse struct {
	DisasterSmsList []json.RawMessage `json:"disasterSmsList"`
	RtnResult       struct {
		TotCnt int `json:"totCnt"`
	} `json:"rtnResult"`
}

// Fetch searches the last seven days of alerts for the configured
// regions and records the rows plus a summary of the newest alert.
func (c *Client) Fetch(ctx context.Context) (model.Record, error) {
	now := c.nowFn()
	payload := map[string]any{
		"searchInfo": map[string]any{
			"firstIndex":         "1",
			"lastIndex":          "1",
			"pageIndex":          "1",
			"pageUnit":           fmt.Sprint(pageSize),
			"pageSize":           pageSize,
			"recordCountPerPage": fmt.Sprint(pageSize),
			"searchBgnDe":        now.AddDate(0, 0, -windowDays).Format("2006-01-02"),
			"searchEndDe":        now.Format("2006-01-02"),
			"sbLawArea1":         c.creds.Get("area_code"),
			"sbLawArea2":         c.creds.Get("area_code2"),
			"sbLawArea3":         c.creds.Get("area_code3"),
			"searchWrd":          "",
			"searchGb":           "1",
			"rcv_Area_Id":        "",
			"dstr_se_Id":         "",
			"c_ocrc_type":        "",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return model.Record{}, integration.ParseErr(ServiceID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL, bytes.NewReader(body))
	if err != nil {
		return model.Record{}, integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return model.Record{}, err
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := integration.DecodeJSON(ServiceID, resp.Body, &parsed); err != nil {
		return model.Record{}, err
	}

	latestText, latestKind, latestAt := "", "", ""
	if len(parsed.DisasterSmsList) > 0 {
		var first struct {
			MsgCn      string `json:"MSG_CN"`
			DsstrSeNm  string `json:"DSSTR_SE_NM"`
			RegYmd     string `json:"REGIST_DT"`
			CreateDate string `json:"CREATE_DT"`
		}
		if err := json.Unmarshal(parsed.DisasterSmsList[0], &first); err == nil {
			latestText = first.MsgCn
			latestKind = first.DsstrSeNm
			latestAt = first.CreateDate
			if latestAt == "" {
				latestAt = first.RegYmd
			}
		}
	}

	return model.NewRecord(map[string]any{
		"alerts": parsed.DisasterSmsList,
		"summary": map[string]any{
			"count":       parsed.RtnResult.TotCnt,
			"latest_text": latestText,
			"latest_kind": latestKind,
			"latest_at":   latestAt,
		},
	})
}
