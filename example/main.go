package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"github.com/xdgkit/notify"
)

func main() {
	err := runMain()
	if err != nil {
		log.Printf("\nerror: %v\n", err)
		os.Exit(1)
	}
}

func runMain() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	defer conn.Close()

	DebugServerFeatures(conn)

	counter := int32(0)
	// Every signal for any notification we sent.
	onAction := func(action *notify.ActionInvokedSignal) {
		atomic.AddInt32(&counter, 1)
		log.Printf("ActionInvoked: %v Key: %v", action.ID, action.ActionKey)
	}
	onClosed := func(closer *notify.NotificationClosedSignal) {
		atomic.AddInt32(&counter, 1)
		log.Printf("NotificationClosed: %v Reason: %v", closer.ID, closer.Reason)
	}

	opts := append(cfg.Options(),
		notify.WithOnAction(onAction),
		notify.WithOnClosed(onClosed),
		notify.WithLogger(log.New(os.Stdout, "notify: ", log.Flags())),
	)
	notifier, err := notify.New(conn, opts...)
	if err != nil {
		return err
	}
	defer notifier.Close()

	n := notify.NewNotification("Test")
	n.Body = "This is a test of the DBus bindings for go with sound."
	n.AddAction("cancel", "Cancel")
	n.AddAction("open", "Open")
	if err := cfg.Apply(&n); err != nil {
		return err
	}

	if absFilePath, err := filepath.Abs("./small.png"); err == nil {
		n.AddHint(notify.HintImageFilePath(absFilePath))
	}
	// image-data takes precedence over image-path on the server
	if rgbaSample, err := readImage("./big.jpg"); err == nil {
		n.AddHint(notify.HintImageDataRGBA(rgbaSample))
	} else {
		log.Printf("no image data: %v", err)
	}

	h, err := notifier.Send(n)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	log.Printf("sent notification id: %v", h.ID())

	// Wait for this notification to be answered or to go away.
	action, closed, err := h.Wait(context.Background())
	if err != nil {
		return err
	}
	if action != nil {
		log.Printf("%q chosen on %d", action.ActionKey, action.ID)
		if action.ActionKey == "cancel" {
			_ = h.Close()
		}
	} else {
		log.Printf("%d closed: %v", closed.ID, closed.Reason)
	}

	log.Printf("total signal count received: %d", atomic.LoadInt32(&counter))

	return nil
}

func DebugServerFeatures(conn *dbus.Conn) {
	// List server features!
	caps, err := notify.GetCapabilities(conn)
	if err != nil {
		log.Printf("error fetching capabilities: %v", err)
	}
	for _, c := range caps.Strings() {
		fmt.Printf("Registered capability: %v\n", c)
	}

	info, err := notify.GetServerInformation(conn)
	if err != nil {
		log.Printf("error getting server information: %v", err)
	}
	fmt.Printf("Name:    %v\n", info.Name)
	fmt.Printf("Vendor:  %v\n", info.Vendor)
	fmt.Printf("Version: %v\n", info.Version)
	fmt.Printf("Spec:    %v\n", info.SpecVersion)
}

func readImage(path string) (*image.RGBA, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	decoded, _, err := image.Decode(fd)
	if err != nil {
		return nil, err
	}
	if img, ok := decoded.(*image.RGBA); ok {
		return img, nil
	}
	b := decoded.Bounds()
	m := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), decoded, b.Min, draw.Src)
	return m, nil
}
