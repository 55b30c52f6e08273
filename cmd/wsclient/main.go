package main

import (
	"flag"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rftool/pkg/logging"
)

func main() {
	host := flag.String("host", "localhost:8080", "Monitor address")
	count := flag.Int("n", 0, "Exit after this many events (0 runs until interrupted)")
	flag.Parse()

	log := logging.New(logging.Options{})

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", u.String()).Msg("dial")
	}
	defer c.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; *count == 0 || i < *count; i++ {
			var ev struct {
				Type    string    `json:"type"`
				Session string    `json:"session"`
				State   string    `json:"state"`
				Time    time.Time `json:"time"`
				Detail  string    `json:"detail"`
			}
			if err := c.ReadJSON(&ev); err != nil {
				log.Info().Err(err).Msg("monitor closed")
				return
			}
			log.Info().
				Str("state", ev.State).
				Str("session", ev.Session).
				Str("detail", ev.Detail).
				Time("at", ev.Time).
				Msg(ev.Type)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
