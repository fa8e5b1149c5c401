package fiscal

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"fmt"
	"math/big"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// SignedDocument is the enveloping signature layout: the original document
// travels base64-encoded next to its digest, the RSA-SHA256 signature over
// the digest and the signing certificate.
type SignedDocument struct {
	XMLName         xml.Name `xml:"SignedFacturae"`
	DigestMethod    string   `xml:"SignedInfo>DigestMethod"`
	DigestValue     string   `xml:"SignedInfo>DigestValue"`
	SignatureMethod string   `xml:"SignedInfo>SignatureMethod"`
	SignatureValue  string   `xml:"SignatureValue"`
	X509Certificate string   `xml:"KeyInfo>X509Certificate"`
	Document        string   `xml:"Object>Document"`
	SigningTime     string   `xml:"Object>QualifyingProperties>SigningTime"`
}

const (
	digestMethodSHA256    = "http://www.w3.org/2001/04/xmlenc#sha256"
	signatureMethodRSA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
)

// RSASigner signs rendered documents with RSA-SHA256 and attaches the
// signing certificate so receivers can verify without out-of-band key
// exchange.
type RSASigner struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
	demo bool
}

// NewRSASignerFromFiles loads a PEM private key and certificate from disk.
// The key may be in PKCS#1 or PKCS#8 form.
func NewRSASignerFromFiles(keyPath, certPath string) (*RSASigner, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("certificate %s is not PEM encoded", certPath)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	return &RSASigner{key: key, cert: cert}, nil
}

// NewRSASignerFromPKCS12 loads the key pair from a PKCS#12 bundle, the format
// fiscal certificates are distributed in. Used for per-request certificates
// uploaded with a signing call.
func NewRSASignerFromPKCS12(data []byte, password string) (*RSASigner, error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decode pkcs12 bundle: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("pkcs12 private key is not RSA")
	}
	return &RSASigner{key: rsaKey, cert: cert}, nil
}

// NewSelfSignedSigner generates an in-memory key pair and self-signed
// certificate. Demo and test use only; production deployments load the shop's
// real certificate via NewRSASignerFromFiles.
func NewSelfSignedSigner(commonName string) (*RSASigner, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	return &RSASigner{key: key, cert: cert, demo: true}, nil
}

// Demo reports whether the signer uses a generated self-signed certificate
func (s *RSASigner) Demo() bool {
	return s.demo
}

// Sign implements fiscal.Signer
func (s *RSASigner) Sign(doc []byte) ([]byte, error) {
	digest := sha256.Sum256(doc)
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}

	signed := SignedDocument{
		DigestMethod:    digestMethodSHA256,
		DigestValue:     base64.StdEncoding.EncodeToString(digest[:]),
		SignatureMethod: signatureMethodRSA256,
		SignatureValue:  base64.StdEncoding.EncodeToString(signature),
		X509Certificate: base64.StdEncoding.EncodeToString(s.cert.Raw),
		Document:        base64.StdEncoding.EncodeToString(doc),
		SigningTime:     time.Now().UTC().Format(time.RFC3339),
	}

	out, err := xml.MarshalIndent(signed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal signed document: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Verify checks a signed document produced by Sign and returns the original
// document bytes on success.
func (s *RSASigner) Verify(signed []byte) ([]byte, error) {
	var doc SignedDocument
	if err := xml.Unmarshal(signed, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal signed document: %w", err)
	}

	original, err := base64.StdEncoding.DecodeString(doc.Document)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	signature, err := base64.StdEncoding.DecodeString(doc.SignatureValue)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	digest := sha256.Sum256(original)
	if err := rsa.VerifyPKCS1v15(&s.key.PublicKey, crypto.SHA256, digest[:], signature); err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}
	return original, nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("private key is not PEM encoded")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}
