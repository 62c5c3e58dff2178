package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// DefaultChainID is the chain id used in the L1 action signing domain.
const DefaultChainID = 1337

var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// Agent(string source,bytes32 connectionId)
	agentTypeHash = ethcrypto.Keccak256(
		[]byte("Agent(string source,bytes32 connectionId)"),
	)
)

// Signer signs L1 exchange actions with EIP-712 typed data. The action is
// hashed together with its nonce into a connection id, which is then signed
// as an Agent struct whose source distinguishes mainnet ("a") from testnet
// ("b").
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int
	domainSep  []byte
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	if chainID <= 0 {
		chainID = DefaultChainID
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}
	s.domainSep = buildDomainSeparator("Exchange", "1", chainID, common.Address{})
	return s, nil
}

// Address returns the Ethereum address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignAction signs action for the given nonce and network.
func (s *Signer) SignAction(action domain.OrderAction, nonce uint64, isMainnet bool) (domain.SignedAction, error) {
	connID, err := ActionHash(action, nonce)
	if err != nil {
		return domain.SignedAction{}, err
	}

	digest := eip712Hash(s.domainSep, agentStructHash(isMainnet, connID))
	sig, err := s.signDigest(digest)
	if err != nil {
		return domain.SignedAction{}, err
	}

	return domain.SignedAction{
		Action: action,
		Nonce:  nonce,
		Signature: domain.Signature{
			R: "0x" + hex.EncodeToString(sig[:32]),
			S: "0x" + hex.EncodeToString(sig[32:64]),
			V: sig[64],
		},
		Hex: "0x" + hex.EncodeToString(sig),
	}, nil
}

// Digest returns the EIP-712 digest SignAction signs. It is exported so
// callers can recover the signer address from a signature.
func (s *Signer) Digest(action domain.OrderAction, nonce uint64, isMainnet bool) ([]byte, error) {
	connID, err := ActionHash(action, nonce)
	if err != nil {
		return nil, err
	}
	return eip712Hash(s.domainSep, agentStructHash(isMainnet, connID)), nil
}

// ActionHash is keccak256(canonical action bytes || nonce as 8 big-endian
// bytes || 0x00), the last byte marking the absence of a vault address.
func ActionHash(action domain.OrderAction, nonce uint64) ([]byte, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: encode action: %w", err)
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return ethcrypto.Keccak256(concatBytes(payload, n[:], []byte{0x00})), nil
}

func agentStructHash(isMainnet bool, connectionID []byte) []byte {
	source := "b"
	if isMainnet {
		source = "a"
	}
	return ethcrypto.Keccak256(
		concatBytes(
			agentTypeHash,
			ethcrypto.Keccak256([]byte(source)),
			common.LeftPadBytes(connectionID, 32),
		),
	)
}

// buildDomainSeparator returns
// keccak256(abi.encode(typeHash, nameHash, versionHash, chainId, verifyingContract)).
func buildDomainSeparator(name, version string, chainID int, verifyingContract common.Address) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
			bigIntTo32Bytes(big.NewInt(int64(chainID))),
			common.LeftPadBytes(verifyingContract.Bytes(), 32),
		),
	)
}

// eip712Hash computes keccak256("\x19\x01" || domainSeparator || structHash).
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(concatBytes([]byte{0x19, 0x01}, domainSep, structHash))
}

// signDigest signs a 32-byte digest and returns r || s || v with v in {27,28}.
func (s *Signer) signDigest(digest []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}

var _ domain.Signer = (*Signer)(nil)
