package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"video-cover-maker/internal/cover"
	"video-cover-maker/internal/mediagroup"
	"video-cover-maker/internal/provider"
	"video-cover-maker/internal/session"
	"video-cover-maker/internal/telegram"
)

const helpText = "🎬 Video Cover Maker\n\n" +
	"Send a portrait photo with the title as its caption and I will " +
	"generate a video cover. Line breaks in the title are kept.\n\n" +
	"Commands:\n" +
	"/style <text> - clothing style\n" +
	"/scene <text> - background scene\n" +
	"/modify <text> - free-form override\n" +
	"/ratio <16:9|9:16|3:4|4:3|1:1|all> - aspect ratio\n" +
	"/provider <direct|queue> - switch provider\n" +
	"/key <secret> - set API key for the active provider\n" +
	"/generate - run with the current draft\n" +
	"/history - recent covers\n" +
	"/clear - reset the draft"

type Options struct {
	Telegram    *telegram.Client
	Service     *cover.Service
	Drafts      *session.Store
	Credentials *provider.Resolver
	Logger      *slog.Logger
}

type Handler struct {
	tg         *telegram.Client
	svc        *cover.Service
	drafts     *session.Store
	creds      *provider.Resolver
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:     opts.Telegram,
		svc:    opts.Service,
		drafts: opts.Drafts,
		creds:  opts.Credentials,
		logger: logger,
	}
}

func (h *Handler) SetAlbumAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, msg)
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, msg.Text)
	}

	return nil
}

// HandleAlbum runs a generation for a flushed Telegram album: first
// photo is the portrait reference, the caption is the title.
func (h *Handler) HandleAlbum(ctx context.Context, album mediagroup.Album) {
	if len(album.FileIDs) == 0 {
		return
	}

	draft := h.drafts.Update(album.ChatID, func(d *session.Draft) {
		d.PhotoFileID = album.FileIDs[0]
		if caption := strings.TrimSpace(album.Caption); caption != "" {
			d.Title = caption
		}
		d.AwaitingTitle = d.Title == ""
	})

	if !draft.Ready() {
		_ = h.tg.SendText(album.ChatID, "📷 Photo saved. Now send the title text for the cover.")
		return
	}

	if err := h.generate(ctx, album.ChatID, draft); err != nil {
		h.logger.Error("album generation failed", "chat_id", album.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)

	case "style":
		h.drafts.Update(chatID, func(d *session.Draft) { d.ClothingStyle = args })
		if args == "" {
			return h.tg.SendText(chatID, "✅ Clothing style cleared, the default look will be used.")
		}
		return h.tg.SendText(chatID, "✅ Clothing style set: "+args)

	case "scene":
		h.drafts.Update(chatID, func(d *session.Draft) { d.BackgroundScene = args })
		if args == "" {
			return h.tg.SendText(chatID, "✅ Background cleared, the default studio look will be used.")
		}
		return h.tg.SendText(chatID, "✅ Background scene set: "+args)

	case "modify":
		h.drafts.Update(chatID, func(d *session.Draft) { d.Modification = args })
		if args == "" {
			return h.tg.SendText(chatID, "✅ Override cleared.")
		}
		return h.tg.SendText(chatID, "✅ Override set: "+args)

	case "ratio":
		if !validRatio(args) {
			return h.tg.SendText(chatID, "❌ Unknown ratio. Use 16:9, 9:16, 3:4, 4:3, 1:1 or all.")
		}
		h.drafts.Update(chatID, func(d *session.Draft) { d.AspectRatio = args })
		return h.tg.SendText(chatID, "✅ Aspect ratio set: "+args)

	case "provider":
		if !h.creds.SetActive(args) {
			return h.tg.SendText(chatID, "❌ Unknown provider. Use direct or queue.")
		}
		if _, ok := h.creds.Secret(); !ok {
			return h.tg.SendText(chatID, "✅ Provider switched to "+args+".\n⚠️ No API key stored for it yet, set one with /key.")
		}
		return h.tg.SendText(chatID, "✅ Provider switched to "+args+".")

	case "key":
		if args == "" {
			return h.tg.SendText(chatID, "❌ Usage: /key <secret>")
		}
		h.creds.SetUserSecret(h.creds.Active(), args)
		h.tg.DeleteMessage(chatID, msg.MessageID)
		return h.tg.SendText(chatID, "✅ API key stored for provider "+h.creds.Active()+". Your message was deleted.")

	case "history":
		return h.sendHistory(chatID)

	case "clear":
		h.drafts.Reset(chatID)
		return h.tg.SendText(chatID, "✅ Draft cleared.")

	case "generate":
		draft := h.drafts.Get(chatID)
		switch {
		case draft.PhotoFileID == "":
			return h.tg.SendText(chatID, "❌ Send a portrait photo first.")
		case draft.Title == "":
			return h.tg.SendText(chatID, "❌ Send the title text first.")
		}
		return h.generate(ctx, chatID, draft)

	default:
		return h.tg.SendText(chatID, "❌ Unknown command, see /help.")
	}
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	// largest size is last
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       msg.From.ID,
			Username:     msg.From.UserName,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       photo.FileID,
		})
		return nil
	}

	draft := h.drafts.Update(chatID, func(d *session.Draft) {
		d.PhotoFileID = photo.FileID
		if caption := strings.TrimSpace(msg.Caption); caption != "" {
			d.Title = caption
		}
		d.AwaitingTitle = d.Title == ""
	})

	if !draft.Ready() {
		return h.tg.SendText(chatID, "📷 Photo saved. Now send the title text for the cover.")
	}

	return h.generate(ctx, chatID, draft)
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	draft := h.drafts.Update(chatID, func(d *session.Draft) {
		d.Title = text
		d.AwaitingTitle = false
	})

	if draft.PhotoFileID == "" {
		return h.tg.SendText(chatID, "📝 Title saved. Now send a portrait photo.")
	}

	return h.generate(ctx, chatID, draft)
}

func (h *Handler) generate(ctx context.Context, chatID int64, draft session.Draft) error {
	if !h.drafts.TryAcquire(chatID) {
		return h.tg.SendText(chatID, "⏳ A cover is already being generated for this chat, please wait.")
	}
	defer h.drafts.Release(chatID)

	h.tg.SendTyping(chatID)

	imageData, imageMIME, err := h.tg.DownloadFile(ctx, draft.PhotoFileID)
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Could not download the photo, please send it again.")
	}

	statusID, err := h.tg.SendStatus(chatID, "🎨 Generating cover...")
	if err != nil {
		return err
	}

	req := cover.Request{
		ImageData:       imageData,
		ImageMIME:       imageMIME,
		Title:           draft.Title,
		ClothingStyle:   draft.ClothingStyle,
		BackgroundScene: draft.BackgroundScene,
		Modification:    draft.Modification,
		AspectRatio:     draft.AspectRatio,
	}

	artifacts, err := h.svc.Generate(ctx, req, func(text string) {
		h.tg.EditText(chatID, statusID, "🎨 "+text)
	})
	if err != nil {
		h.logger.Error("generation failed", "chat_id", chatID, "kind", cover.KindOf(err), "err", err)
		h.tg.EditText(chatID, statusID, failureText(err))
		return nil
	}

	h.tg.EditText(chatID, statusID, fmt.Sprintf("✅ Done, %d cover(s) ready!", len(artifacts)))

	for _, a := range artifacts {
		caption := "✅ " + a.AspectRatio
		if strings.HasPrefix(a.DataURI, "data:") {
			err = h.tg.SendPhotoDataURL(chatID, a.DataURI, caption)
		} else {
			err = h.tg.SendPhotoURL(chatID, a.DataURI, caption)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) sendHistory(chatID int64) error {
	entries := h.svc.History().Entries()
	if len(entries) == 0 {
		return h.tg.SendText(chatID, "History is empty, nothing generated yet.")
	}

	const maxShown = 5
	var b strings.Builder
	b.WriteString("🗂 Recent covers (newest first):\n")
	for i, e := range entries {
		if i == maxShown {
			fmt.Fprintf(&b, "... and %d more\n", len(entries)-maxShown)
			break
		}
		title := strings.ReplaceAll(e.Title, "\n", " / ")
		fmt.Fprintf(&b, "%d. %s - %s (%s)\n", i+1, title, e.CreatedAt.Format("15:04:05"), e.ID)
	}
	return h.tg.SendText(chatID, b.String())
}

func failureText(err error) string {
	switch cover.KindOf(err) {
	case cover.KindValidation:
		return "❌ " + err.Error()
	case cover.KindCredential:
		return "🔑 Provider rejected the credentials. Set a key with /key or switch with /provider."
	case cover.KindOverloaded:
		return "🚦 The provider is overloaded right now, retries did not help. Try again in a minute."
	case cover.KindTaskTimeout:
		return "⌛ The provider did not finish the task in time. Try again."
	case cover.KindAllFailed:
		return "❌ Every size variant failed. Try again or switch provider with /provider."
	default:
		return "❌ Generation failed: " + err.Error()
	}
}

func validRatio(value string) bool {
	if value == cover.RatioAll {
		return true
	}
	for _, r := range cover.BatchRatios {
		if value == r {
			return true
		}
	}
	return false
}
