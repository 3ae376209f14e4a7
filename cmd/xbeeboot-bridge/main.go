// Command xbeeboot-bridge drives an STK500/Optiboot bootloader session
// over a mesh-gateway XBee radio link.
package main

import (
	"bytes"
	"fmt"
	"os"

	"go.uber.org/zap"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/davidsainty/xbeeboot/internal/config"
	"github.com/davidsainty/xbeeboot/internal/logging"
	"github.com/davidsainty/xbeeboot/stk500"
	"github.com/davidsainty/xbeeboot/xbee"
)

var (
	app        = kingpin.New("xbeeboot-bridge", "STK500 bootloader bridge over an XBee mesh")
	configFile = app.Flag("config", "Path to a config file").String()
	port       = app.Flag("port", "Port spec: <64-bit-hex-addr>@<device> or @<device> for direct mode").String()
	baud       = app.Flag("baud", "Serial baud rate (default: mode-appropriate)").Int()
	resetPin   = app.Flag("reset-pin", "Target reset pin, 1-7 (default 3)").Int()
	debug      = app.Flag("debug", "Enable debug logging").Bool()

	programCmd  = app.Command("program", "Flash a firmware image and verify it")
	programFile = programCmd.Arg("file", "Raw binary firmware image").Required().String()

	resetCmd = app.Command("reset", "Pulse the target's reset line and confirm the bootloader answers")

	statsCmd = app.Command("stats", "Open, probe sync, and report round-trip timing statistics")
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configFile)
	if err != nil {
		kingpin.Fatalf("%v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *baud != 0 {
		cfg.Baud = *baud
	}
	if *resetPin != 0 {
		cfg.ResetPin = *resetPin
	}
	if *debug {
		cfg.Debug = true
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		kingpin.Fatalf("building logger: %v", err)
	}
	defer log.Sync()

	if cfg.Port == "" {
		kingpin.Fatalf("--port is required")
	}

	sess, err := xbee.Open(xbee.Options{
		Port:         cfg.Port,
		Baud:         cfg.Baud,
		ResetPin:     cfg.ResetPin,
		InBufferSize: cfg.InBufferSize,
	})
	if err != nil {
		log.Fatal("open session", zap.Error(err))
	}
	defer sess.Close()

	switch cmd {
	case programCmd.FullCommand():
		if err := runProgram(sess, log, *programFile); err != nil {
			log.Fatal("program", zap.Error(err))
		}
	case resetCmd.FullCommand():
		if err := sess.Drain(); err != nil {
			log.Fatal("drain before reset", zap.Error(err))
		}
		if err := sess.Reset(); err != nil {
			log.Fatal("reset", zap.Error(err))
		}
		log.Info("bootloader answered sync after reset")
	case statsCmd.FullCommand():
		printStats(sess)
	}
}

func runProgram(sess *xbee.Session, log *zap.Logger, path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading firmware image: %w", err)
	}

	if err := stk500.EnterProgmode(sess); err != nil {
		return err
	}
	defer stk500.LeaveProgmode(sess)

	sig, err := stk500.ReadSignature(sess)
	if err != nil {
		return err
	}
	log.Info("target signature", zap.Binary("signature", sig[:]))

	const pageSize = 128
	for addr := 0; addr < len(image); addr += pageSize {
		end := addr + pageSize
		if end > len(image) {
			end = len(image)
		}
		page := image[addr:end]

		if err := stk500.LoadAddress(sess, uint16(addr/2)); err != nil {
			return fmt.Errorf("load address %#x: %w", addr, err)
		}
		if err := stk500.ProgramPage(sess, stk500.FlashMemType, page); err != nil {
			return fmt.Errorf("program page at %#x: %w", addr, err)
		}
		if err := stk500.LoadAddress(sess, uint16(addr/2)); err != nil {
			return fmt.Errorf("load address %#x: %w", addr, err)
		}
		readBack, err := stk500.ReadPage(sess, stk500.FlashMemType, len(page))
		if err != nil {
			return fmt.Errorf("read back page at %#x: %w", addr, err)
		}
		if !bytes.Equal(readBack, page) {
			return fmt.Errorf("verify page at %#x: read-back differs from image", addr)
		}
		log.Debug("programmed page", zap.Int("addr", addr), zap.Int("len", len(page)))
	}

	log.Info("flash complete", zap.Int("bytes", len(image)))
	return nil
}

func printStats(sess *xbee.Session) {
	for _, s := range sess.Stats() {
		fmt.Printf("%-12s samples=%-6d min=%-10s max=%-10s mean=%s\n",
			s.Group, s.Samples, s.Minimum, s.Maximum, s.Mean)
	}
}
