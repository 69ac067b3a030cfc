package db

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RichardoC/padchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// forEachStore runs fn against every Store adapter with a controllable clock.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store, clock *fakeClock)) {
	t.Run("memory", func(t *testing.T) {
		clock := &fakeClock{t: epoch}
		m := NewMemory()
		m.now = clock.now
		fn(t, m, clock)
	})
	t.Run("sqlite", func(t *testing.T) {
		clock := &fakeClock{t: epoch}
		database, err := New(filepath.Join(t.TempDir(), "chat.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		database.now = clock.now
		fn(t, database, clock)
	})
}

func TestListConversationsUnknownOwner(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		convs, err := s.ListConversations(context.Background(), "nobody")
		require.NoError(t, err)
		assert.NotNil(t, convs)
		assert.Empty(t, convs)
	})
}

func TestConversationsOrderedByMostRecentActivity(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		first, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
		require.NoError(t, err)
		clock.advance(time.Second)
		second, err := s.CreateConversation(ctx, "alice", "Second")
		require.NoError(t, err)
		clock.advance(time.Second)
		_, err = s.CreateConversation(ctx, "bob", "Bob's")
		require.NoError(t, err)

		convs, err := s.ListConversations(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, second.ID, convs[0].ID)
		assert.Equal(t, first.ID, convs[1].ID)

		require.NoError(t, s.TouchConversation(ctx, first.ID, clock.t.Add(time.Minute)))

		convs, err = s.ListConversations(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, first.ID, convs[0].ID)
		assert.Equal(t, epoch, convs[0].CreatedAt)
		assert.Equal(t, clock.t.Add(time.Minute), convs[0].UpdatedAt)
	})
}

func TestTouchConversation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		conv, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
		require.NoError(t, err)

		require.NoError(t, s.TouchConversation(ctx, conv.ID, epoch.Add(-time.Hour)))
		got, err := s.GetConversation(ctx, conv.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, epoch, got.UpdatedAt, "updated_at must not move backwards")

		assert.ErrorIs(t, s.TouchConversation(ctx, "missing", epoch), models.ErrNotFound)
	})
}

func TestConversationOwnershipIsolation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		conv, err := s.CreateConversation(ctx, "bob", "private")
		require.NoError(t, err)

		_, err = s.GetConversation(ctx, conv.ID, "alice")
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = s.UpdateConversationTitle(ctx, conv.ID, "alice", "mine now")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID, "alice"), models.ErrNotFound)
		assert.ErrorIs(t, s.DeleteConversation(ctx, "does-not-exist", "alice"), models.ErrNotFound)

		got, err := s.GetConversation(ctx, conv.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, "private", got.Title)
	})
}

func TestUpdateConversationTitle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		conv, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
		require.NoError(t, err)

		updated, err := s.UpdateConversationTitle(ctx, conv.ID, "alice", "Renamed")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, conv.ID, updated.ID)
	})
}

func TestMessagesStayChronological(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		conv, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
		require.NoError(t, err)

		save := func(role models.Role, content string) models.Message {
			msg := &models.Message{ConvID: conv.ID, Role: role, Content: content}
			require.NoError(t, s.SaveMessage(ctx, msg))
			require.NotEmpty(t, msg.ID)
			return *msg
		}

		first := save(models.RoleUser, "hi")
		clock.advance(time.Second)
		second := save(models.RoleAssistant, "hello")
		// the wall clock jumping back must not reorder history
		clock.advance(-time.Hour)
		third := save(models.RoleUser, "again")

		messages, err := s.ListMessages(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, []string{first.ID, second.ID, third.ID},
			[]string{messages[0].ID, messages[1].ID, messages[2].ID})
		for i := 1; i < len(messages); i++ {
			assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
		}
		assert.Equal(t, second.CreatedAt, third.CreatedAt)

		n, err := s.CountMessages(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}

func TestMessageImageURL(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		conv, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
		require.NoError(t, err)

		img := "data:image/png;base64,AAA"
		require.NoError(t, s.SaveMessage(ctx, &models.Message{ConvID: conv.ID, Role: models.RoleUser, Content: "a red cube"}))
		require.NoError(t, s.SaveMessage(ctx, &models.Message{ConvID: conv.ID, Role: models.RoleAssistant, Content: "A red cube.", ImageURL: &img}))

		messages, err := s.ListMessages(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Nil(t, messages[0].ImageURL)
		require.NotNil(t, messages[1].ImageURL)
		assert.Equal(t, img, *messages[1].ImageURL)
		assert.Equal(t, models.RoleAssistant, messages[1].Role)
	})
}

func TestDeleteConversationCascades(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		conv, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
		require.NoError(t, err)
		keep, err := s.CreateConversation(ctx, "alice", "keep")
		require.NoError(t, err)
		for _, id := range []string{conv.ID, keep.ID} {
			require.NoError(t, s.SaveMessage(ctx, &models.Message{ConvID: id, Role: models.RoleUser, Content: "q"}))
			require.NoError(t, s.SaveMessage(ctx, &models.Message{ConvID: id, Role: models.RoleAssistant, Content: "a"}))
		}

		require.NoError(t, s.DeleteConversation(ctx, conv.ID, "alice"))

		messages, err := s.ListMessages(ctx, conv.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)
		_, err = s.GetConversation(ctx, conv.ID, "alice")
		assert.ErrorIs(t, err, models.ErrNotFound)

		kept, err := s.ListMessages(ctx, keep.ID)
		require.NoError(t, err)
		assert.Len(t, kept, 2)
	})
}

func TestDeleteMessages(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		conv, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
		require.NoError(t, err)
		require.NoError(t, s.SaveMessage(ctx, &models.Message{ConvID: conv.ID, Role: models.RoleUser, Content: "q"}))

		require.NoError(t, s.DeleteMessages(ctx, conv.ID))
		n, err := s.CountMessages(ctx, conv.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	database, err := New(path)
	require.NoError(t, err)
	conv, err := database.CreateConversation(ctx, "alice", "durable")
	require.NoError(t, err)
	require.NoError(t, database.SaveMessage(ctx, &models.Message{ConvID: conv.ID, Role: models.RoleUser, Content: "still here"}))
	require.NoError(t, database.Close())

	database, err = New(path)
	require.NoError(t, err)
	defer database.Close()

	convs, err := database.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "durable", convs[0].Title)

	messages, err := database.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "still here", messages[0].Content)
}

func TestConcurrentSavesAcrossConversations(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		const conversations = 24
		ids := make([]string, conversations)
		for i := range ids {
			conv, err := s.CreateConversation(ctx, "alice", models.DefaultTitle)
			require.NoError(t, err)
			ids[i] = conv.ID
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for _, role := range []models.Role{models.RoleUser, models.RoleAssistant} {
					msg := &models.Message{ConvID: id, Role: role, Content: fmt.Sprintf("%s in %s", role, id)}
					assert.NoError(t, s.SaveMessage(ctx, msg))
				}
				assert.NoError(t, s.TouchConversation(ctx, id, epoch.Add(time.Minute)))
			}(id)
		}
		wg.Wait()

		for _, id := range ids {
			n, err := s.CountMessages(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		}
	})
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "chat.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dsn("chat.db"))
	assert.Equal(t, "file:chat.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dsn("file:chat.db?mode=rwc"))
}
