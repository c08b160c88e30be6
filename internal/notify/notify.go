// Package notify delivers emails for invites and account verification. The
// transport is either SMTP or a RabbitMQ queue consumed by a mail worker.
package notify

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	KindInvite       = "invite"
	KindVerification = "verification"
)

type Message struct {
	Kind      string `json:"kind"`
	To        string `json:"to"`
	Link      string `json:"link"`
	FileLabel string `json:"fileLabel,omitempty"`
	FromLabel string `json:"fromLabel,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Report tells the caller which recipients were reached. Failed maps an
// address to the reason its delivery failed
type Report struct {
	Sent   []string          `json:"sent"`
	Failed map[string]string `json:"failed,omitempty"`
}

type Dispatcher struct {
	Sender  Sender
	BaseURL string
	Workers int
	Timeout time.Duration
}

func NewDispatcher(s Sender, baseURL string, workers int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Dispatcher{
		Sender:  s,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Workers: workers,
		Timeout: timeout,
	}
}

// InviteLink is the URL a recipient opens to view grantID
func (d *Dispatcher) InviteLink(grantID string) string {
	return fmt.Sprintf("%s/invite/%s", d.BaseURL, grantID)
}

// SendInvite mails every recipient independently. A failing address never
// stops the others and never returns an error; it is listed in the report.
func (d *Dispatcher) SendInvite(ctx context.Context, recipients []string, grantID, fileLabel, fromLabel string) Report {
	link := d.InviteLink(grantID)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, d.Workers)
	)

	report := Report{Sent: []string{}}

	for _, to := range recipients {
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			sendCtx, cancel := context.WithTimeout(ctx, d.Timeout)
			defer cancel()

			err := d.Sender.Send(sendCtx, Message{
				Kind:      KindInvite,
				To:        to,
				Link:      link,
				FileLabel: fileLabel,
				FromLabel: fromLabel,
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if report.Failed == nil {
					report.Failed = make(map[string]string)
				}
				report.Failed[to] = err.Error()

				zap.L().Warn("Failed to deliver invite", zap.String("invite_id", grantID), zap.Error(err))
				return
			}

			report.Sent = append(report.Sent, to)
		}()
	}

	wg.Wait()
	slices.Sort(report.Sent)

	return report
}

// SendVerification mails the email verification link to a new account
func (d *Dispatcher) SendVerification(ctx context.Context, to, userID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	return d.Sender.Send(ctx, Message{
		Kind: KindVerification,
		To:   to,
		Link: fmt.Sprintf("%s/verify?user_id=%s&token=%s", d.BaseURL, userID, token),
	})
}
