// Command hashpass prints a bcrypt hash for admin_password_hash.
//
// The password is read from the first line of stdin so it does not end up in
// shell history.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/festboard/internal/adapters/http/auth"
)

func main() {
	hash, err := hashFrom(os.Stdin)
	if err != nil {
		os.Stderr.WriteString("hashpass: " + err.Error() + "\n")
		os.Exit(1)
	}
	fmt.Println(hash)
}

func hashFrom(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return auth.HashPassword(strings.TrimRight(line, "\r\n"))
}
