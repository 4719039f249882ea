package mtproto

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/tg"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

var (
	errMessageNotFound = errors.New("message not found")
	errNoMedia         = errors.New("message has no downloadable media")
)

// Bot API chat ids of supergroups and channels are -100<channel id>.
const channelIDShift = 1_000_000_000_000

// mediaFile is everything upload.getFile needs for one message's media.
type mediaFile struct {
	location tg.InputFileLocationClass
	size     int64
	dc       int
}

func channelID(chatID int64) (int64, bool) {
	if chatID < -channelIDShift {
		return -chatID - channelIDShift, true
	}
	return 0, false
}

type messageGetter interface {
	MessagesGetMessages(ctx context.Context, id []tg.InputMessageClass) (tg.MessagesMessagesClass, error)
	ChannelsGetMessages(ctx context.Context, request *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
}

// fetchMessage loads a single message by its Bot API coordinates.
func fetchMessage(ctx context.Context, api messageGetter, loc domain.SourceLocation) (*tg.Message, error) {
	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: loc.MessageID}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if id, ok := channelID(loc.ChatID); ok {
		res, err = api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: id},
			ID:      ids,
		})
	} else {
		// private chats and basic groups share the bot's message id space
		res, err = api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d in %d: %w", loc.MessageID, loc.ChatID, err)
	}

	var msgs []tg.MessageClass
	switch m := res.(type) {
	case *tg.MessagesMessages:
		msgs = m.Messages
	case *tg.MessagesMessagesSlice:
		msgs = m.Messages
	case *tg.MessagesChannelMessages:
		msgs = m.Messages
	default:
		return nil, fmt.Errorf("get message %d in %d: unexpected %T", loc.MessageID, loc.ChatID, res)
	}
	for _, mc := range msgs {
		if msg, ok := mc.(*tg.Message); ok && msg.ID == loc.MessageID {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("message %d in %d: %w", loc.MessageID, loc.ChatID, errMessageNotFound)
}

// mediaOf picks the downloadable file of a message: the document, or the
// largest size of a photo.
func mediaOf(msg *tg.Message) (mediaFile, error) {
	switch m := msg.Media.(type) {
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return mediaFile{}, errNoMedia
		}
		return mediaFile{
			location: &tg.InputDocumentFileLocation{
				ID:            doc.ID,
				AccessHash:    doc.AccessHash,
				FileReference: doc.FileReference,
			},
			size: doc.Size,
			dc:   doc.DCID,
		}, nil

	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return mediaFile{}, errNoMedia
		}
		thumb, size := largestPhotoSize(photo.Sizes)
		if thumb == "" {
			return mediaFile{}, errNoMedia
		}
		return mediaFile{
			location: &tg.InputPhotoFileLocation{
				ID:            photo.ID,
				AccessHash:    photo.AccessHash,
				FileReference: photo.FileReference,
				ThumbSize:     thumb,
			},
			size: size,
			dc:   photo.DCID,
		}, nil
	}
	return mediaFile{}, errNoMedia
}

func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, int64) {
	var (
		typ  string
		best int64 = -1
	)
	for _, s := range sizes {
		switch ps := s.(type) {
		case *tg.PhotoSize:
			if int64(ps.Size) > best {
				typ, best = ps.Type, int64(ps.Size)
			}
		case *tg.PhotoSizeProgressive:
			if n := len(ps.Sizes); n > 0 && int64(ps.Sizes[n-1]) > best {
				typ, best = ps.Type, int64(ps.Sizes[n-1])
			}
		}
	}
	if best < 0 {
		return "", 0
	}
	return typ, best
}
