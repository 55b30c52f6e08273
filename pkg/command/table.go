package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rftool/pkg/rfdc"
)

type handler struct {
	args  int
	usage string
	run   func(args []string) (string, error)
}

// Table dispatches whitespace-separated commands against the converter.
// Command names match case-insensitively.
type Table struct {
	conv     *rfdc.Converter
	version  string
	handlers map[string]handler
}

// NewTable builds the command table over conv.
func NewTable(conv *rfdc.Converter, version string) *Table {
	t := &Table{conv: conv, version: version}
	t.handlers = map[string]handler{
		"disconnect":       {0, "", t.disconnect},
		"version":          {0, "", t.getVersion},
		"help":             {0, "", t.help},
		"getdesigntype":    {0, "", t.designType},
		"gettileplan":      {0, "", t.tilePlan},
		"resettile":        {2, "<adc|dac> <tile>", t.resetTile},
		"dynamicpllconfig": {5, "<adc|dac> <tile> <source> <ref_mhz> <sample_mhz>", t.pllConfig},
		"setfifo":          {2, "<adc|dac> <0|1>", t.setFIFO},
		"gettilestate":     {2, "<adc|dac> <tile>", t.tileState},
	}
	return t
}

func (t *Table) Dispatch(line []byte) (Status, []byte) {
	fields := strings.Fields(string(bytes.TrimRight(line, "\r\n")))
	if len(fields) == 0 {
		return ErrUndefined, []byte("empty command")
	}

	name := strings.ToLower(fields[0])
	h, ok := t.handlers[name]
	if !ok {
		return ErrUndefined, []byte(fields[0])
	}
	args := fields[1:]
	if len(args) != h.args {
		return ErrNumArgs, []byte(fmt.Sprintf("%s expects %d, got %d", fields[0], h.args, len(args)))
	}

	resp, err := h.run(args)
	if err != nil {
		return ErrExecute, []byte(err.Error())
	}
	return OK, []byte(resp)
}

func (t *Table) disconnect([]string) (string, error) { return DisconnectToken, nil }

func (t *Table) getVersion([]string) (string, error) { return t.version, nil }

func (t *Table) help([]string) (string, error) {
	names := make([]string, 0, len(t.handlers))
	for n, h := range t.handlers {
		if h.usage != "" {
			n += " " + h.usage
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, "; "), nil
}

func (t *Table) designType([]string) (string, error) {
	v := t.conv.Variant()
	return fmt.Sprintf("%d %s", int(v), v), nil
}

func (t *Table) tilePlan([]string) (string, error) {
	p := t.conv.Plan()
	return fmt.Sprintf("%d %d %d", p.ADCTiles, p.DACTiles, p.DACStart), nil
}

func (t *Table) resetTile(args []string) (string, error) {
	kind, tile, err := kindTile(args[0], args[1])
	if err != nil {
		return "", err
	}
	if err := t.conv.ResetTile(kind, tile); err != nil {
		return "", err
	}
	return "ok", nil
}

func (t *Table) pllConfig(args []string) (string, error) {
	kind, tile, err := kindTile(args[0], args[1])
	if err != nil {
		return "", err
	}
	src, err := strconv.Atoi(args[2])
	if err != nil || (src != rfdc.ExternalClock && src != rfdc.InternalPLL) {
		return "", fmt.Errorf("invalid clock source %q", args[2])
	}
	ref, err := strconv.ParseFloat(args[3], 64)
	if err != nil || ref <= 0 {
		return "", fmt.Errorf("invalid reference frequency %q", args[3])
	}
	rate, err := strconv.ParseFloat(args[4], 64)
	if err != nil || rate <= 0 {
		return "", fmt.Errorf("invalid sample rate %q", args[4])
	}

	if err := t.conv.ConfigurePLL(kind, tile, rfdc.PLLConfig{Source: src, RefClkMHz: ref, SampleMHz: rate}); err != nil {
		return "", err
	}
	return "ok", nil
}

func (t *Table) setFIFO(args []string) (string, error) {
	kind, err := rfdc.ParseKind(args[0])
	if err != nil {
		return "", err
	}
	var enable bool
	switch args[1] {
	case "0":
	case "1":
		enable = true
	default:
		return "", fmt.Errorf("invalid fifo enable %q", args[1])
	}
	if err := t.conv.SetFIFOs(kind, enable); err != nil {
		return "", err
	}
	return "ok", nil
}

func (t *Table) tileState(args []string) (string, error) {
	kind, tile, err := kindTile(args[0], args[1])
	if err != nil {
		return "", err
	}
	st, err := t.conv.TileState(kind, tile)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func kindTile(k, n string) (rfdc.Kind, int, error) {
	kind, err := rfdc.ParseKind(k)
	if err != nil {
		return 0, 0, err
	}
	tile, err := strconv.Atoi(n)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tile %q", n)
	}
	return kind, tile, nil
}
