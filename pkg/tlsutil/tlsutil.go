/*
Copyright 2021 The Kubecc Authors.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package tlsutil creates self-signed certificates and TLS configurations
// for the linesearch server and client.
package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	keyBits      = 2048
	validFor     = 365 * 24 * time.Hour
	commonName   = "localhost"
	DefaultCert  = "cert.pem"
	DefaultKey   = "key.pem"
	keyFileMode  = 0600
	certFileMode = 0644
)

// EnsureCertificate makes sure dir contains a certificate and key. If both
// files already exist they are left alone; otherwise a self-signed
// certificate for localhost is generated. Partially written output is
// removed on failure. It returns the certificate and key paths.
func EnsureCertificate(dir, certName, keyName string) (certPath, keyPath string, err error) {
	if certName == "" {
		certName = DefaultCert
	}
	if keyName == "" {
		keyName = DefaultKey
	}
	certPath = filepath.Join(dir, certName)
	keyPath = filepath.Join(dir, keyName)
	if fileExists(certPath) && fileExists(keyPath) {
		return
	}
	if err = os.MkdirAll(dir, 0700); err != nil {
		err = errors.WithMessage(err, "could not create certificate directory")
		return
	}
	defer func() {
		if err != nil {
			os.Remove(certPath)
			os.Remove(keyPath)
		}
	}()
	certPEM, keyPEM, err := generate(time.Now())
	if err != nil {
		return
	}
	if err = os.WriteFile(keyPath, keyPEM, keyFileMode); err != nil {
		err = errors.WithMessage(err, "could not write key")
		return
	}
	if err = os.WriteFile(certPath, certPEM, certFileMode); err != nil {
		err = errors.WithMessage(err, "could not write certificate")
	}
	return
}

func generate(now time.Time) (certPEM, keyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "could not generate key")
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, errors.WithMessage(err, "could not generate serial number")
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Country:            []string{"US"},
			Province:           []string{"State"},
			Locality:           []string{"City"},
			Organization:       []string{"Org"},
			OrganizationalUnit: []string{"Unit"},
			CommonName:         commonName,
		},
		DNSNames:              []string{commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "could not create certificate")
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return certPEM, keyPEM, nil
}

// ServerConfig loads a key pair into a server-side TLS configuration.
func ServerConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, errors.WithMessage(err, "could not load key pair")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientConfig returns a client-side TLS configuration. Self-signed server
// certificates require insecure to be set, or the certificate to be added
// with TrustCertificate.
func ClientConfig(insecure bool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: insecure, // #nosec G402
		MinVersion:         tls.VersionTLS12,
	}
}

// TrustCertificate adds the PEM certificate at certPath to the root pool of
// conf.
func TrustCertificate(conf *tls.Config, certPath string) error {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return errors.WithMessage(err, "could not read certificate")
	}
	if conf.RootCAs == nil {
		conf.RootCAs = x509.NewCertPool()
	}
	if !conf.RootCAs.AppendCertsFromPEM(data) {
		return errors.Errorf("no certificates found in %s", certPath)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
