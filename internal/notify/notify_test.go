package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ostrander/workbench/internal/models"
	slackapi "github.com/slack-go/slack"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockSlackClient struct {
	channels []string
	texts    []string
	err      error
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.channels = append(m.channels, channelID)
	m.texts = append(m.texts, "sent")
	return "", "", m.err
}

type mockDiscordSession struct {
	contents []string
	err      error
}

func (m *mockDiscordSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.contents = append(m.contents, content)
	return nil, m.err
}

// ---------------------------------------------------------------------------
// Notifier tests
// ---------------------------------------------------------------------------

func TestNewSlack_RequiresToken(t *testing.T) {
	if _, err := NewSlack(SlackOpts{ChannelID: "C1"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNewSlack_RequiresChannel(t *testing.T) {
	if _, err := NewSlack(SlackOpts{Client: &mockSlackClient{}}); err == nil {
		t.Fatal("expected error for missing channel")
	}
}

func TestSlack_Send(t *testing.T) {
	client := &mockSlackClient{}
	s, err := NewSlack(SlackOpts{Client: client, ChannelID: "C1"})
	if err != nil {
		t.Fatalf("NewSlack: %v", err)
	}
	if err := s.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(client.channels) != 1 || client.channels[0] != "C1" {
		t.Errorf("channels = %v", client.channels)
	}
}

func TestDiscord_Send(t *testing.T) {
	session := &mockDiscordSession{}
	d, err := NewDiscord(DiscordOpts{Session: session, ChannelID: "D1"})
	if err != nil {
		t.Fatalf("NewDiscord: %v", err)
	}
	if err := d.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(session.contents) != 1 || session.contents[0] != "hello" {
		t.Errorf("contents = %v", session.contents)
	}
}

func TestMulti_SwallowsFailures(t *testing.T) {
	failing := &mockSlackClient{err: errors.New("rate limited")}
	s, _ := NewSlack(SlackOpts{Client: failing, ChannelID: "C1"})
	session := &mockDiscordSession{}
	d, _ := NewDiscord(DiscordOpts{Session: session, ChannelID: "D1"})

	m := Multi{s, d}
	if err := m.Send("hello"); err != nil {
		t.Fatalf("Multi.Send: %v", err)
	}
	if len(session.contents) != 1 {
		t.Error("second channel skipped after first failed")
	}
}

// ---------------------------------------------------------------------------
// Digest tests
// ---------------------------------------------------------------------------

func openNotifyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = gdb.AutoMigrate(&models.Material{}, &models.Task{}, &models.TaskMaterialLine{}, &models.Delivery{})
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func TestBuildDigest_Empty(t *testing.T) {
	gdb := openNotifyTestDB(t)
	text, err := BuildDigest(gdb, time.Now(), 3)
	if err != nil {
		t.Fatalf("BuildDigest: %v", err)
	}
	if text != "" {
		t.Errorf("digest = %q, want empty", text)
	}
}

func TestBuildDigest_Content(t *testing.T) {
	gdb := openNotifyTestDB(t)
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	gdb.Create(&models.Delivery{ProjectID: 1, Date: "2026-08-29", Title: "drop-off", Status: models.DeliveryStatusPending})
	gdb.Create(&models.Delivery{ProjectID: 1, Date: "2026-10-01", Title: "far away", Status: models.DeliveryStatusPending})
	gdb.Create(&models.Material{Name: "glue", CurrentQty: 1, ThresholdQty: 2})

	text, err := BuildDigest(gdb, now, 3)
	if err != nil {
		t.Fatalf("BuildDigest: %v", err)
	}
	if !strings.Contains(text, "drop-off") {
		t.Errorf("digest missing upcoming delivery: %q", text)
	}
	if strings.Contains(text, "far away") {
		t.Errorf("digest includes delivery outside window: %q", text)
	}
	if !strings.Contains(text, "glue") || !strings.Contains(text, "low") {
		t.Errorf("digest missing stock warning: %q", text)
	}
}
