// Package chat holds the line oriented connection to Twitch chat.
//
// Two transports implement Transport:
//   - Conn: a raw TLS socket to irc.chat.twitch.tv:6697. Lines are read with
//     a bounded reader and written verbatim; the bot performs the handshake
//     (CAP REQ, PASS, NICK, JOIN) and answers PING itself.
//   - Gempir: an adapter over github.com/gempir/go-twitch-irc. The library
//     owns the handshake, keepalive and reconnects; incoming messages are
//     handed back as their raw lines and outgoing PRIVMSG, JOIN and PART
//     lines are translated to client calls.
//
// The bot selects one with IRC_TRANSPORT (tls or gempir).
package chat
