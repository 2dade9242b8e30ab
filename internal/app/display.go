// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/headtracker/internal/config"
	"github.com/relabs-tech/headtracker/internal/curve"
	"github.com/relabs-tech/headtracker/internal/orientation"
)

const (
	displayW = 128
	displayH = 64
)

// axisLetters labels the alt-branch flags line, one letter per axis.
const axisLetters = "xyzYPR"

// addressedBus sends every transaction to addr. The ssd1306 driver always
// talks to 0x3C; modules strapped to 0x3D need the rewrite.
type addressedBus struct {
	i2c.Bus
	addr uint16
}

func (b addressedBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// RunDisplay draws the output pose on an SSD1306 OLED until ctx is done.
func RunDisplay(ctx context.Context, ctl Controller, cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("display: failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("display: failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(addressedBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("display: failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	var errCount uint64
	for {
		select {
		case <-ctx.Done():
			if err := dev.Halt(); err != nil {
				log.Printf("display: halt: %v", err)
			}
			return nil
		case <-ticker.C:
			snap := ctl.Snapshot()
			img := renderPose(snap.Output, snap.Axes, snap.Enabled)
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				errCount++
				if errCount%100 == 1 {
					log.Printf("display: error updating display: %v (total errors: %d)", err, errCount)
				}
			}
		}
	}
}

func newDrawer() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayW, displayH))
	return img, &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func renderSplash() *image1bit.VerticalLSB {
	img, d := newDrawer()
	drawLine(d, 22, 26, "headtrack")
	drawLine(d, 15, 43, "Waiting...")
	return img
}

// altFlags marks every axis on its alt curve with its letter, others '.'.
func altFlags(axes curve.Axes) string {
	b := []byte("......")
	for i, a := range axes {
		if a.CurveAltActive {
			b[i] = axisLetters[i]
		}
	}
	return string(b)
}

// renderPose lays out the pose in four 7x13 text rows:
// translation, tracking state, rotation, alt-branch flags.
func renderPose(p orientation.Pose, axes curve.Axes, enabled bool) *image1bit.VerticalLSB {
	img, d := newDrawer()

	state := "ON"
	if !enabled {
		state = "OFF"
	}

	drawLine(d, 0, 13, fmt.Sprintf("x%6.1f y%6.1f", p[orientation.X], p[orientation.Y]))
	drawLine(d, 0, 26, fmt.Sprintf("z%6.1f %s", p[orientation.Z], state))
	drawLine(d, 0, 39, fmt.Sprintf("Y%6.1f P%6.1f", p[orientation.Yaw], p[orientation.Pitch]))
	drawLine(d, 0, 52, fmt.Sprintf("R%6.1f %s", p[orientation.Roll], altFlags(axes)))

	return img
}
