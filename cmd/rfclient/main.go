// rfclient opens a session against the server: the data connection first,
// then the command connection. Commands come from the arguments, or from
// stdin one per line; each response is printed as it arrives.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rftool/pkg/logging"
)

func main() {
	host := flag.String("host", "localhost", "Server host")
	cmdPort := flag.Int("cmd-port", 8081, "Command port")
	dataPort := flag.Int("data-port", 8082, "Data port")
	out := flag.String("o", "", "Write streamed data to this file instead of discarding it")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-response timeout")
	flag.Parse()

	log := logging.New(logging.Options{})

	data, err := net.Dial("tcp", net.JoinHostPort(*host, fmt.Sprint(*dataPort)))
	if err != nil {
		log.Fatal().Err(err).Msg("dial data")
	}
	defer data.Close()

	cmd, err := net.Dial("tcp", net.JoinHostPort(*host, fmt.Sprint(*cmdPort)))
	if err != nil {
		log.Fatal().Err(err).Msg("dial command")
	}
	defer cmd.Close()

	sink := io.Discard
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("create output")
		}
		defer f.Close()
		sink = f
	}

	var received atomic.Int64
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		n, _ := io.Copy(sink, data)
		received.Store(n)
	}()

	var commands []string
	if flag.NArg() > 0 {
		commands = []string{strings.Join(flag.Args(), " ")}
	}

	resp := bufio.NewReader(cmd)
	send := func(line string) bool {
		if _, err := fmt.Fprintf(cmd, "%s\n", line); err != nil {
			log.Error().Err(err).Msg("send")
			return false
		}
		cmd.SetReadDeadline(time.Now().Add(*timeout))
		r, err := resp.ReadString('\n')
		if err != nil {
			log.Error().Err(err).Msg("no response")
			return false
		}
		fmt.Println(strings.TrimSuffix(r, "\n"))
		return strings.TrimSpace(r) != "disconnect"
	}

	if commands != nil {
		for _, c := range commands {
			if !send(c) {
				break
			}
		}
	} else {
		in := bufio.NewScanner(os.Stdin)
		for in.Scan() {
			if !send(in.Text()) {
				break
			}
		}
	}

	cmd.Close()
	select {
	case <-streamDone:
	case <-time.After(*timeout):
		data.Close()
		<-streamDone
	}
	log.Info().Int64("data_bytes", received.Load()).Msg("session ended")
}
