package handshake

import (
	"net"
	"testing"
	"time"
)

func TestSendReceiveVerified(t *testing.T) {
	client, proxy := net.Pipe()
	defer client.Close()
	defer proxy.Close()

	secret := []byte("hunter2-hunter2-hunter2-hunter2")
	done := make(chan error, 1)
	go func() {
		done <- Send(client, secret, time.Second)
	}()

	status, err := Receive(proxy, secret, time.Second)
	if err != nil {
		t.Fatalf("Receive() returned error: %s", err)
	}
	if status != StatusVerified {
		t.Fatalf("Receive() status = %v, want StatusVerified", status)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send() returned error: %s", err)
	}
}

func TestReceiveIncorrectSecret(t *testing.T) {
	client, proxy := net.Pipe()
	defer client.Close()
	defer proxy.Close()

	go func() {
		_, _ = client.Write([]byte("wrong-secret-wrong-secret-wrong"))
	}()

	secret := []byte("hunter2-hunter2-hunter2-hunter2")
	status, err := Receive(proxy, secret, time.Second)
	if err == nil {
		t.Fatal("Receive() returned nil error for an incorrect secret")
	}
	if status != StatusIncorrect {
		t.Fatalf("Receive() status = %v, want StatusIncorrect", status)
	}
}

func TestSendRejectedOnIncorrectStatus(t *testing.T) {
	client, proxy := net.Pipe()
	defer client.Close()
	defer proxy.Close()

	go func() {
		var buf [32]byte
		_, _ = proxy.Read(buf[:])
		_, _ = proxy.Write([]byte{byte(StatusIncorrect)})
	}()

	secret := []byte("hunter2-hunter2-hunter2-hunter2")
	err := Send(client, secret, time.Second)
	if err != ErrRejected {
		t.Fatalf("Send() error = %v, want ErrRejected", err)
	}
}

func TestReceiveEmptyOnShortRead(t *testing.T) {
	client, proxy := net.Pipe()
	defer proxy.Close()

	secret := []byte("hunter2-hunter2-hunter2-hunter2")
	go func() {
		_, _ = client.Write([]byte("short"))
		_ = client.Close()
	}()

	status, err := Receive(proxy, secret, time.Second)
	if err == nil {
		t.Fatal("Receive() returned nil error for a short read")
	}
	if status != StatusEmpty {
		t.Fatalf("Receive() status = %v, want StatusEmpty", status)
	}
}
