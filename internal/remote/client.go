// Package remote implements gateway.Gateway against a courseforge HTTP server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courseforge/internal/gateway"
	"courseforge/internal/logger"
	"courseforge/internal/model"
	"courseforge/internal/web"
)

const DefaultTimeout = 15 * time.Second

type Client struct {
	base string
	hc   *http.Client
	log  *logger.Logger
}

var _ gateway.Gateway = (*Client)(nil)

type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
}

func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote url %q", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: baseURL, hc: hc, log: opts.Logger}, nil
}

func (c *Client) FetchStructure(ctx context.Context, courseID string) (gateway.Structure, error) {
	var st gateway.Structure
	err := c.do(ctx, "fetchStructure", http.MethodGet, "/api/courses/"+url.PathEscape(courseID)+"/structure", nil, &st)
	return st, err
}

func (c *Client) SaveLesson(ctx context.Context, lesson model.Lesson) error {
	return c.do(ctx, "saveLesson", http.MethodPut, "/api/lessons/"+url.PathEscape(lesson.ID), lesson, nil)
}

func (c *Client) CreateLessonFromTemplate(ctx context.Context, moduleID string, tpl model.LessonTemplate) (string, error) {
	var out web.IDResponse
	err := c.do(ctx, "createLessonFromTemplate", http.MethodPost, "/api/modules/"+url.PathEscape(moduleID)+"/lessons/from-template", web.TemplateRequest{Template: tpl}, &out)
	return out.ID, err
}

func (c *Client) ReorderModules(ctx context.Context, courseID string, ids []string) error {
	return c.do(ctx, "reorderModules", http.MethodPut, "/api/courses/"+url.PathEscape(courseID)+"/module-order", web.OrderRequest{IDs: ids}, nil)
}

func (c *Client) ReorderLessons(ctx context.Context, moduleID string, ids []string) error {
	return c.do(ctx, "reorderLessons", http.MethodPut, "/api/modules/"+url.PathEscape(moduleID)+"/lesson-order", web.OrderRequest{IDs: ids}, nil)
}

func (c *Client) MoveLesson(ctx context.Context, lessonID, newModuleID string) error {
	return c.do(ctx, "moveLesson", http.MethodPost, "/api/lessons/"+url.PathEscape(lessonID)+"/move", web.MoveRequest{ModuleID: newModuleID}, nil)
}

func (c *Client) CopyLesson(ctx context.Context, lesson model.Lesson, moduleID string) error {
	return c.do(ctx, "copyLesson", http.MethodPost, "/api/modules/"+url.PathEscape(moduleID)+"/lessons/copy", web.CopyRequest{Lesson: lesson}, nil)
}

func (c *Client) DeleteLesson(ctx context.Context, lessonID string) error {
	return c.do(ctx, "deleteLesson", http.MethodDelete, "/api/lessons/"+url.PathEscape(lessonID), nil, nil)
}

func (c *Client) SaveStructureTemplate(ctx context.Context, courseID string, in model.StructureTemplateInput) (string, error) {
	var out web.IDResponse
	err := c.do(ctx, "saveStructureTemplate", http.MethodPost, "/api/courses/"+url.PathEscape(courseID)+"/structure-templates", in, &out)
	return out.ID, err
}

// do sends body as JSON and decodes a 2xx response into out. Every failure comes
// back as a *gateway.NetworkError; a 404 also wraps gateway.ErrNotFound.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return gateway.Wrap(op, fmt.Errorf("encode request: %w", err))
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return gateway.Wrap(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return gateway.Wrap(op, err)
	}
	defer resp.Body.Close()
	c.log.Debug("remote call", "op", op, "status", resp.StatusCode, "dur", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er web.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return gateway.Wrap(op, fmt.Errorf("%s: %w", msg, gateway.ErrNotFound))
		}
		return gateway.Wrap(op, fmt.Errorf("http %d: %s", resp.StatusCode, msg))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return gateway.Wrap(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
