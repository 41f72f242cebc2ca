package publisher

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/jondor-ad-bot/internal/messages"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

// Sender is the part of *bot.Bot the publisher needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
	SendMediaGroup(ctx context.Context, params *bot.SendMediaGroupParams) ([]*models.Message, error)
}

type Publisher struct {
	sender  Sender
	groupID int64
}

func NewPublisher(sender Sender, groupID int64) *Publisher {
	return &Publisher{sender: sender, groupID: groupID}
}

// MaxAlbumSize is the largest media group Telegram accepts.
const MaxAlbumSize = 10

// Publish posts the collected ad to the group. Photos and videos go out as an
// album when there are two or more of them, with the text as the caption of the
// first item. More than MaxAlbumSize items are split into several albums. A
// lone photo or video carries the caption itself, and a text-only
// ad is a plain message. Audio files always follow one by one.
func (p *Publisher) Publish(ctx context.Context, data types.DataBag) error {
	caption := ""
	if len(data.Texts) > 0 {
		caption = messages.Escape(data.CombinedText())
	}

	visual := len(data.Photos) + len(data.Videos)
	switch {
	case visual > 1:
		media := make([]models.InputMedia, 0, visual)
		for _, id := range data.Photos {
			media = append(media, &models.InputMediaPhoto{Media: id})
		}
		for _, id := range data.Videos {
			media = append(media, &models.InputMediaVideo{Media: id})
		}
		setCaption(media[0], caption)
		for i, album := range splitAlbum(media) {
			if _, err := p.sender.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
				ChatID: p.groupID,
				Media:  album,
			}); err != nil {
				return fmt.Errorf("%w: media group %d: %v", types.ErrPublishFailure, i+1, err)
			}
		}
	case len(data.Photos) == 1:
		if _, err := p.sender.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    p.groupID,
			Photo:     &models.InputFileString{Data: data.Photos[0]},
			Caption:   caption,
			ParseMode: messages.ParseModeHTML,
		}); err != nil {
			return fmt.Errorf("%w: photo: %v", types.ErrPublishFailure, err)
		}
	case len(data.Videos) == 1:
		if _, err := p.sender.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:    p.groupID,
			Video:     &models.InputFileString{Data: data.Videos[0]},
			Caption:   caption,
			ParseMode: messages.ParseModeHTML,
		}); err != nil {
			return fmt.Errorf("%w: video: %v", types.ErrPublishFailure, err)
		}
	case caption != "":
		if _, err := p.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    p.groupID,
			Text:      caption,
			ParseMode: messages.ParseModeHTML,
		}); err != nil {
			return fmt.Errorf("%w: text: %v", types.ErrPublishFailure, err)
		}
	}

	for i, id := range data.Audios {
		if _, err := p.sender.SendAudio(ctx, &bot.SendAudioParams{
			ChatID: p.groupID,
			Audio:  &models.InputFileString{Data: id},
		}); err != nil {
			return fmt.Errorf("%w: audio %d: %v", types.ErrPublishFailure, i+1, err)
		}
	}
	return nil
}

// splitAlbum cuts media into the fewest albums of at most MaxAlbumSize items,
// sized evenly so none of them drops below the two-item minimum.
func splitAlbum(media []models.InputMedia) [][]models.InputMedia {
	n := (len(media) + MaxAlbumSize - 1) / MaxAlbumSize
	albums := make([][]models.InputMedia, 0, n)
	for i := 0; i < n; i++ {
		start := i * len(media) / n
		end := (i + 1) * len(media) / n
		albums = append(albums, media[start:end])
	}
	return albums
}

func setCaption(item models.InputMedia, caption string) {
	if caption == "" {
		return
	}
	switch m := item.(type) {
	case *models.InputMediaPhoto:
		m.Caption = caption
		m.ParseMode = messages.ParseModeHTML
	case *models.InputMediaVideo:
		m.Caption = caption
		m.ParseMode = messages.ParseModeHTML
	}
}
