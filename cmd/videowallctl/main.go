// SPDX-License-Identifier: MIT

// videowallctl controls videowall nodes: it emits multicast trigger
// commands and uploads replacement videos over the transfer protocol.
//
// Synchronized playback across many nodes:
//
//	videowallctl load   # all nodes preload and pause
//	videowallctl go     # all nodes start together
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
)

const (
	defaultGroup        = "239.255.42.1"
	defaultCommandPort  = 5000
	defaultTransferPort = 5001
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  videowallctl [flags] play|stop|load|go
  videowallctl [flags] send <file> <host>

Flags:
  -g, -group group   multicast group (default %s)
  -p, -port port     port (default %d for commands, %d for transfers)
`, defaultGroup, defaultCommandPort, defaultTransferPort)
	os.Exit(2)
}

func main() {
	var (
		group string
		port  int
	)
	flag.StringVar(&group, "g", defaultGroup, "multicast group")
	flag.StringVar(&group, "group", defaultGroup, "multicast group")
	flag.IntVar(&port, "p", 0, "port override")
	flag.IntVar(&port, "port", 0, "port override")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	switch strings.ToLower(args[0]) {
	case "play", "stop", "load", "go":
		cmdPort := port
		if cmdPort == 0 {
			cmdPort = defaultCommandPort
		}
		if err := sendCommand(args[0], group, cmdPort); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "send":
		if len(args) < 3 {
			usage()
		}
		xferPort := port
		if xferPort == 0 {
			xferPort = defaultTransferPort
		}
		if err := sendFile(args[1], args[2], xferPort); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
	}
}

// sendCommand emits one multicast datagram. Fire and forget: there is no
// acknowledgement and no way to tell delivery from loss.
func sendCommand(command, group string, port int) error {
	addr := &net.UDPAddr{IP: net.ParseIP(group), Port: port}
	if addr.IP == nil {
		return fmt.Errorf("invalid multicast group %q", group)
	}

	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	payload := strings.ToUpper(command)
	if _, err := conn.Write([]byte(payload)); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	fmt.Printf("sent %s to %s:%d\n", payload, group, port)
	return nil
}

// sendFile uploads a video per the transfer protocol: wait for READY, send
// an 8-byte big-endian length, stream the file, read the final verdict.
func sendFile(path, host string, port int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	r := bufio.NewReader(conn)

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	greeting, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	switch strings.TrimSpace(greeting) {
	case "READY":
	case "BUSY":
		return fmt.Errorf("node is busy (playback in progress)")
	default:
		return fmt.Errorf("unexpected response %q", strings.TrimSpace(greeting))
	}

	fmt.Printf("sending %s (%d bytes) to %s\n", path, size, addr)

	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(size))
	_ = conn.SetDeadline(time.Time{})
	if _, err := conn.Write(header[:]); err != nil {
		return fmt.Errorf("send header: %w", err)
	}
	if _, err := io.Copy(conn, f); err != nil {
		return fmt.Errorf("send payload: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	verdict, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read verdict: %w", err)
	}
	if strings.TrimSpace(verdict) != "OK" {
		return fmt.Errorf("transfer failed: %s", strings.TrimSpace(verdict))
	}

	fmt.Println("file transferred successfully")
	return nil
}
