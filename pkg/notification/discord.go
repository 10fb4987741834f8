package notification

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lucperkins/rek"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crossgaze/crossgaze/pkg/config"
)

const (
	maxEmbedsPerMessage = 10

	// hardcoded limit of fields to avoid hammering the api
	maxTotalFields = 250
)

type DiscordMessage struct {
	Content interface{}    `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       int                  `json:"color"`
	Fields      []DiscordEmbedsField `json:"fields,omitempty"`
	Footer      DiscordEmbedsFooter  `json:"footer,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

type DiscordEmbedsFooter struct {
	Text string `json:"text"`
}

type DiscordEmbedsField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

const embedColorLightBlue = 0x58b9ff

type discordSender struct {
	log    *logrus.Entry
	config config.NotificationsConfig
}

func NewDiscordSender(log *logrus.Entry, cfg config.NotificationsConfig) Sender {
	return &discordSender{
		log:    log.WithField("sender", "discord"),
		config: cfg,
	}
}

func (d *discordSender) Name() string {
	return "discord"
}

func (d *discordSender) CanSend() bool {
	return d.config.Service.Discord != ""
}

func (d *discordSender) Send(title string, description string, runTime time.Duration, fields []Field) error {
	if len(fields) == 0 && d.config.SkipEmptyRun {
		return nil
	}

	timestamp := time.Now()
	rt := runTime.Truncate(time.Millisecond).String()

	var embeds []DiscordEmbed

	if len(fields) == 0 || len(fields) > maxTotalFields || !d.config.Detailed {
		embeds = append(embeds, DiscordEmbed{
			Title:       title,
			Description: description,
			Color:       embedColorLightBlue,
			Footer:      DiscordEmbedsFooter{Text: d.buildFooter(0, len(fields), rt)},
			Timestamp:   timestamp,
		})
	} else {
		for i, field := range fields {
			embeds = append(embeds, DiscordEmbed{
				Title:       title,
				Description: fmt.Sprintf("**%s**", field.Name),
				Color:       embedColorLightBlue,
				Fields: []DiscordEmbedsField{
					{Name: "Match", Value: field.Value},
				},
				Footer:    DiscordEmbedsFooter{Text: d.buildFooter(i+1, len(fields), rt)},
				Timestamp: timestamp,
			})
		}

		embeds = append(embeds, DiscordEmbed{
			Title:       fmt.Sprintf("%s - Summary", title),
			Description: description,
			Color:       embedColorLightBlue,
			Footer:      DiscordEmbedsFooter{Text: d.buildFooter(0, 0, rt)},
			Timestamp:   timestamp,
		})
	}

	for start := 0; start < len(embeds); start += maxEmbedsPerMessage {
		end := start + maxEmbedsPerMessage
		if end > len(embeds) {
			end = len(embeds)
		}

		if err := d.sendMessage(DiscordMessage{Embeds: embeds[start:end]}); err != nil {
			return err
		}
	}

	d.log.Debugf("Sent %d embed(s) to discord", len(embeds))
	return nil
}

func (d *discordSender) sendMessage(msg DiscordMessage) error {
	res, err := rek.Post(d.config.Service.Discord,
		rek.Json(msg),
		rek.Timeout(30*time.Second),
	)
	if err != nil {
		return errors.Wrap(err, "send discord webhook request")
	}
	defer res.Body().Close()

	d.log.Tracef("Discord response status: %d", res.StatusCode())

	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusNoContent {
		body, readErr := io.ReadAll(res.Body())
		if readErr != nil {
			return errors.Wrap(readErr, "read discord error body")
		}
		return errors.Errorf("unexpected discord status %d: %s", res.StatusCode(), string(body))
	}

	return nil
}

func (d *discordSender) buildFooter(progress int, totalFields int, runTime string) string {
	if totalFields == 0 {
		return fmt.Sprintf("Run time: %s", runTime)
	}
	return fmt.Sprintf("Match: %d/%d | Run time: %s", progress, totalFields, runTime)
}
