// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// Package sensors reads the MPU-9250 gyroscope over SPI at register
// level. Only the gyro path is wired up; the accelerometer and
// magnetometer are not needed to drive the trainer.
package sensors

import (
	"fmt"
	"log"
	"math"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// MPU-9250 register addresses (see the datasheet register map).
const (
	regSmplrtDiv  = 0x19 // Sample Rate = Internal_Sample_Rate / (1 + SMPLRT_DIV)
	regConfig     = 0x1A // DLPF_CFG in bits 2:0
	regGyroConfig = 0x1B // GYRO_FS_SEL in bits 4:3
	regGyroXoutH  = 0x43 // six data bytes: XH XL YH YL ZH ZL
	regPwrMgmt1   = 0x6B
	regWhoAmI     = 0x75

	whoAmIMPU9250 = 0x71
	spiReadFlag   = 0x80

	// PWR_MGMT_1: wake from sleep, auto-select the best clock source.
	pwrClockAuto = 0x01
)

// gyroSensitivity is LSB per °/s for each GYRO_FS_SEL value
// (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s).
var gyroSensitivity = [4]float64{131.0, 65.5, 32.8, 16.4}

// MPU9250 is a minimal SPI driver for the gyroscope path of the chip.
type MPU9250 struct {
	port spi.PortCloser
	conn spi.Conn
	sens float64 // LSB per °/s at the configured range
}

// NewMPU9250 opens the SPI device, verifies the chip identity, and
// configures the gyro range, low-pass filter, and sample rate divider.
func NewMPU9250(dev string, gyroRange, dlpf, smplrtDiv byte) (*MPU9250, error) {
	if gyroRange > 3 {
		return nil, fmt.Errorf("gyro range must be 0-3, got %d", gyroRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open SPI device %s: %w", dev, err)
	}

	conn, err := port.Connect(1*physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect SPI device %s: %w", dev, err)
	}

	m := &MPU9250{port: port, conn: conn, sens: gyroSensitivity[gyroRange]}

	id, err := m.readReg(regWhoAmI)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("read WHO_AM_I: %w", err)
	}
	if id != whoAmIMPU9250 {
		port.Close()
		return nil, fmt.Errorf("unexpected WHO_AM_I 0x%02X (want 0x%02X) on %s", id, whoAmIMPU9250, dev)
	}

	if err := m.writeReg(regPwrMgmt1, pwrClockAuto); err != nil {
		port.Close()
		return nil, fmt.Errorf("wake device: %w", err)
	}
	if err := m.writeReg(regConfig, dlpf&0x07); err != nil {
		port.Close()
		return nil, fmt.Errorf("set DLPF: %w", err)
	}
	if err := m.writeReg(regSmplrtDiv, smplrtDiv); err != nil {
		port.Close()
		return nil, fmt.Errorf("set sample rate divider: %w", err)
	}
	if err := m.writeReg(regGyroConfig, gyroRange<<3); err != nil {
		port.Close()
		return nil, fmt.Errorf("set gyro range: %w", err)
	}

	log.Printf("MPU9250 on %s: gyro range ±%d°/s, DLPF %d, SMPLRT_DIV %d",
		dev, []int{250, 500, 1000, 2000}[gyroRange], dlpf&0x07, smplrtDiv)
	return m, nil
}

// ReadGyro returns the angular velocity of all three axes in rad/s.
func (m *MPU9250) ReadGyro() (x, y, z float64, err error) {
	write := make([]byte, 7)
	read := make([]byte, 7)
	write[0] = regGyroXoutH | spiReadFlag
	if err := m.conn.Tx(write, read); err != nil {
		return 0, 0, 0, fmt.Errorf("gyro burst read: %w", err)
	}

	toRadPerSec := func(h, l byte) float64 {
		raw := int16(uint16(h)<<8 | uint16(l))
		return float64(raw) / m.sens * math.Pi / 180.0
	}
	return toRadPerSec(read[1], read[2]),
		toRadPerSec(read[3], read[4]),
		toRadPerSec(read[5], read[6]), nil
}

// Close releases the SPI port.
func (m *MPU9250) Close() error {
	return m.port.Close()
}

func (m *MPU9250) readReg(reg byte) (byte, error) {
	write := []byte{reg | spiReadFlag, 0}
	read := make([]byte, 2)
	if err := m.conn.Tx(write, read); err != nil {
		return 0, err
	}
	return read[1], nil
}

func (m *MPU9250) writeReg(reg, value byte) error {
	return m.conn.Tx([]byte{reg, value}, nil)
}
