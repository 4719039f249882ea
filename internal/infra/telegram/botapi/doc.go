// Package botapi is a small Telegram Bot API client.
//
// It covers the calls the gateway needs:
//   - getFile, to turn a file_id into a short-lived download URL
//   - getMe, for the bot identity shown by the API
//   - plain GETs of the resolved file URL with an optional Range header
//
// Resolved file paths are cached so repeated downloads of the same file do
// not spend getFile calls. Paths are cached instead of URLs because the URL
// embeds the bot token.
//
// Files above 20 MB cannot be resolved through the public Bot API; getFile
// then fails with ErrFileTooBig.
package botapi
