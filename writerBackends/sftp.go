package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"speedraw/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sshAuth picks key auth when privateKey is set (base64 or raw PEM), else password.
func sshAuth(accessInfo map[string]string) ([]ssh.AuthMethod, error) {
	if privateKey := accessInfo["privateKey"]; privateKey != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			keyBytes = []byte(privateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if password := accessInfo["password"]; password != "" {
		return []ssh.AuthMethod{ssh.Password(password)}, nil
	}
	return nil, fmt.Errorf("no auth method provided; set password or privateKey in accessInfo")
}

// hostKeyCallback pins the server key when hostKey (authorized_keys format)
// is given.
func hostKeyCallback(accessInfo map[string]string) (ssh.HostKeyCallback, error) {
	hostKey := accessInfo["hostKey"]
	if hostKey == "" {
		logger.Warnf("No hostKey configured for %s; accepting any host key", accessInfo["host"])
		return ssh.InsecureIgnoreHostKey(), nil
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(hostKey))
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}
	return ssh.FixedHostKey(key), nil
}

// UploadToSFTPWithCreds copies the file to remoteDir/folder/filename on an
// SFTP server. Required keys: host, user, remoteDir and an auth method.
func UploadToSFTPWithCreds(ctx context.Context, accessInfo map[string]string, reader io.Reader) (string, error) {
	host := accessInfo["host"]
	user := accessInfo["user"]
	remoteDir := accessInfo["remoteDir"]
	if host == "" || user == "" || remoteDir == "" {
		return "", fmt.Errorf("missing required accessInfo keys: host, user, remoteDir")
	}
	port := accessInfo["port"]
	if port == "" {
		port = "22"
	}
	name, err := objectName(accessInfo)
	if err != nil {
		return "", err
	}

	auths, err := sshAuth(accessInfo)
	if err != nil {
		return "", err
	}
	hostKeys, err := hostKeyCallback(accessInfo)
	if err != nil {
		return "", err
	}
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: hostKeys,
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(host, port)
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return "", fmt.Errorf("create sftp client: %w", err)
	}
	defer sftpClient.Close()

	remotePath := path.Join(remoteDir, name)
	if err := writeSFTP(sftpClient, remotePath, reader); err != nil {
		return "", err
	}

	logger.Infof("Successfully uploaded '%s' to %s", remotePath, addr)
	return fmt.Sprintf("sftp://%s%s", addr, remotePath), nil
}

// writeSFTP creates the parent directories and copies reader to remotePath.
func writeSFTP(client *sftp.Client, remotePath string, reader io.Reader) error {
	dir := path.Dir(remotePath)
	if err := mkdirAllSFTP(client, dir); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", dir, err)
	}

	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("copy to remote file %s: %w", remotePath, err)
	}
	return nil
}

// mkdirAllSFTP mimics os.MkdirAll for an SFTP server.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}
	for _, p := range strings.Split(dir, "/") {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
			if err := client.Mkdir(cur); err != nil {
				return fmt.Errorf("mkdir %s: %w", cur, err)
			}
		}
	}
	return nil
}
