package bus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/realtime"
)

// SSESource reads generation events from a text/event-stream endpoint.
type SSESource struct {
	log    *logger.Logger
	rc     *resty.Client
	url    string
	tokens TokenSource
}

func NewSSESource(log *logger.Logger, url string, tokens TokenSource, hc *http.Client) (*SSESource, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("stream url required")
	}
	if log == nil {
		log = logger.Nop()
	}
	var rc *resty.Client
	if hc != nil {
		rc = resty.NewWithClient(hc)
	} else {
		rc = resty.New()
	}
	return &SSESource{
		log:    log.With("service", "SSEProgressSource"),
		rc:     rc,
		url:    url,
		tokens: tokens,
	}, nil
}

func (s *SSESource) Stream(ctx context.Context, courseID string, onOpen func(), onMsg func(realtime.Message)) error {
	req := s.rc.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		SetQueryParam("courseId", courseID)
	if s.tokens != nil {
		tok, err := s.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.SetAuthToken(tok)
	}

	resp, err := req.Get(s.url)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	if body == nil {
		return fmt.Errorf("progress stream: empty body")
	}
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(body, 1<<16))
		return fmt.Errorf("progress stream: status=%d body=%s", resp.StatusCode(), strings.TrimSpace(string(raw)))
	}
	if onOpen != nil {
		onOpen()
	}

	return readSSE(body, func(event string, data string) error {
		if strings.TrimSpace(data) == "" {
			return nil
		}
		switch event {
		case "", "message":
			msg, err := decodeEnvelope([]byte(data))
			if err != nil {
				s.log.Warn("bad SSE progress frame", "error", err)
				return nil
			}
			onMsg(msg)
		default:
			onMsg(realtime.Message{Event: realtime.Event(event), Data: []byte(data)})
		}
		return nil
	})
}

// readSSE splits r into events. Comment lines are heartbeats and are skipped.
func readSSE(r io.Reader, onEvent func(event string, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		ev := eventName
		dataLines = nil
		eventName = ""
		return onEvent(ev, data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if line != "" {
					if ferr := parseSSELine(strings.TrimRight(line, "\r\n"), &eventName, &dataLines); ferr != nil {
						return ferr
					}
				}
				return flush()
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		// Blank line ends event.
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if err := parseSSELine(line, &eventName, &dataLines); err != nil {
			return err
		}
	}
}

func parseSSELine(line string, eventName *string, dataLines *[]string) error {
	switch {
	case strings.HasPrefix(line, ":"):
	case strings.HasPrefix(line, "event:"):
		*eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
	case strings.HasPrefix(line, "data:"):
		*dataLines = append(*dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
	}
	return nil
}
