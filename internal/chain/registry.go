package chain

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kjannette/trahn-wallet/internal/config"
)

// Token is a loaded TokenDescriptor.
type Token struct {
	Symbol  string
	Address common.Address
	ABI     abi.ABI
	Native  bool
}

// Registry maps logical token and contract names to addresses and ABIs.
// It is built once and never mutated.
type Registry struct {
	tokens   []Token
	bySymbol map[string]int
	wrapped  int
	factory  abi.ABI
	router   abi.ABI
}

// ABIDocuments holds the raw ABI JSON per contract kind.
type ABIDocuments map[ABIKind]string

// ReadABIDocuments reads every contract kind's ABI file from dir. Only the first
// line of each file is used.
func ReadABIDocuments(dir string) (ABIDocuments, error) {
	docs := ABIDocuments{}
	for _, kind := range []ABIKind{ABIWrappedNative, ABIToken, ABIFactory, ABIRouter} {
		path := filepath.Join(dir, string(kind)+".abi")
		line, err := firstLine(path)
		if err != nil {
			return nil, config.Errorf(err, "read ABI file %s", path)
		}
		docs[kind] = line
	}
	return docs, nil
}

// LoadRegistry reads the ABI files in dir and builds the registry for p.
func LoadRegistry(p *Profile, dir string) (*Registry, error) {
	docs, err := ReadABIDocuments(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(p, docs)
}

// NewRegistry parses docs and binds them to the profile's token table.
func NewRegistry(p *Profile, docs ABIDocuments) (*Registry, error) {
	parsed := make(map[ABIKind]abi.ABI, len(docs))
	for kind, doc := range docs {
		a, err := abi.JSON(strings.NewReader(doc))
		if err != nil {
			return nil, config.Errorf(err, "parse %s ABI", kind)
		}
		parsed[kind] = a
	}

	factory, ok := parsed[ABIFactory]
	if !ok {
		return nil, config.Errorf(nil, "missing %s ABI", ABIFactory)
	}
	router, ok := parsed[ABIRouter]
	if !ok {
		return nil, config.Errorf(nil, "missing %s ABI", ABIRouter)
	}

	r := &Registry{
		bySymbol: make(map[string]int, len(p.Tokens)),
		wrapped:  -1,
		factory:  factory,
		router:   router,
	}
	for _, spec := range p.Tokens {
		symbol := strings.ToUpper(spec.Symbol)
		if _, dup := r.bySymbol[symbol]; dup {
			return nil, config.Errorf(nil, "duplicate token %s in profile %s", symbol, p.Name)
		}
		t := Token{Symbol: symbol, Address: spec.Address, Native: spec.Address == NativeAddress}
		if !t.Native {
			a, ok := parsed[spec.ABI]
			if !ok {
				return nil, config.Errorf(nil, "token %s references missing %s ABI", symbol, spec.ABI)
			}
			t.ABI = a
		}
		r.bySymbol[symbol] = len(r.tokens)
		if symbol == strings.ToUpper(p.WrappedNativeSymbol) {
			r.wrapped = len(r.tokens)
		}
		r.tokens = append(r.tokens, t)
	}
	if r.wrapped < 0 {
		return nil, config.Errorf(nil, "profile %s has no %s token", p.Name, p.WrappedNativeSymbol)
	}
	return r, nil
}

// Token looks up a descriptor by symbol, case-insensitively.
func (r *Registry) Token(symbol string) (Token, bool) {
	i, ok := r.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return Token{}, false
	}
	return r.tokens[i], true
}

// Tokens returns the descriptors in registry order.
func (r *Registry) Tokens() []Token {
	return append([]Token(nil), r.tokens...)
}

// WrappedNative returns the wrapped-native token descriptor.
func (r *Registry) WrappedNative() Token { return r.tokens[r.wrapped] }

func (r *Registry) FactoryABI() abi.ABI { return r.factory }
func (r *Registry) RouterABI() abi.ABI  { return r.router }

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%s is empty", path)
	}
	line := strings.TrimSpace(sc.Text())
	if line == "" {
		return "", fmt.Errorf("%s has an empty first line", path)
	}
	return line, nil
}
