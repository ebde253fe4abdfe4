package bindings

import "context"

// Method names understood by the engine module.
const (
	MethodCreateInstance  = "create_instance"
	MethodGetPublicKey    = "get_public_key"
	MethodInputNew        = "input_new"
	MethodInputAdd        = "input_add"
	MethodInputEncrypt    = "input_encrypt"
	MethodReencrypt       = "reencrypt"
	MethodCreateEIP712    = "create_eip712"
	MethodGenerateKeypair = "generate_keypair"
)

// InstanceID and InputID are guest-side handles.
type (
	InstanceID uint32
	InputID    uint32
)

type CreateInstanceRequest struct {
	ChainID    int64  `json:"chainId"`
	NetworkURL string `json:"networkUrl"`
	GatewayURL string `json:"gatewayUrl"`
	ACLAddress string `json:"aclAddress"`
}

type instanceRef struct {
	Instance InstanceID `json:"instance"`
}

type inputRef struct {
	Input InputID `json:"input"`
}

type publicKeyResult struct {
	PublicKey string `json:"publicKey"`
}

type InputNewRequest struct {
	Instance        InstanceID `json:"instance"`
	ContractAddress string     `json:"contractAddress"`
	UserAddress     string     `json:"userAddress"`
}

// InputAddRequest appends one plaintext. Value is decimal ("true"/"false"
// for bool).
type InputAddRequest struct {
	Input InputID `json:"input"`
	Type  string  `json:"type"`
	Value string  `json:"value"`
}

// InputEncryptResult carries hex handles and the hex input proof.
type InputEncryptResult struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

type ReencryptRequest struct {
	Instance        InstanceID `json:"instance"`
	Handle          string     `json:"handle"`
	PrivateKey      string     `json:"privateKey"`
	PublicKey       string     `json:"publicKey"`
	Signature       string     `json:"signature"`
	ContractAddress string     `json:"contractAddress"`
	UserAddress     string     `json:"userAddress"`
}

type reencryptResult struct {
	Value string `json:"value"`
}

type CreateEIP712Request struct {
	Instance        InstanceID `json:"instance"`
	PublicKey       string     `json:"publicKey"`
	ContractAddress string     `json:"contractAddress"`
	UserAddress     string     `json:"userAddress,omitempty"`
}

type KeypairResult struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// Caller is the transport the typed wrappers use. *Module implements it.
type Caller interface {
	Call(ctx context.Context, method string, req, resp any) error
}

// CreateInstance asks the guest to set up an engine for a network.
func CreateInstance(ctx context.Context, c Caller, req CreateInstanceRequest) (InstanceID, error) {
	var out instanceRef
	if err := c.Call(ctx, MethodCreateInstance, req, &out); err != nil {
		return 0, err
	}
	return out.Instance, nil
}

// GetPublicKey returns the network key, or "" when the guest has none.
func GetPublicKey(ctx context.Context, c Caller, id InstanceID) (string, error) {
	var out publicKeyResult
	if err := c.Call(ctx, MethodGetPublicKey, instanceRef{Instance: id}, &out); err != nil {
		return "", err
	}
	return out.PublicKey, nil
}

func InputNew(ctx context.Context, c Caller, req InputNewRequest) (InputID, error) {
	var out inputRef
	if err := c.Call(ctx, MethodInputNew, req, &out); err != nil {
		return 0, err
	}
	return out.Input, nil
}

func InputAdd(ctx context.Context, c Caller, req InputAddRequest) error {
	return c.Call(ctx, MethodInputAdd, req, nil)
}

func InputEncrypt(ctx context.Context, c Caller, id InputID) (InputEncryptResult, error) {
	var out InputEncryptResult
	if err := c.Call(ctx, MethodInputEncrypt, inputRef{Input: id}, &out); err != nil {
		return InputEncryptResult{}, err
	}
	return out, nil
}

// Reencrypt returns the plaintext as a decimal string.
func Reencrypt(ctx context.Context, c Caller, req ReencryptRequest) (string, error) {
	var out reencryptResult
	if err := c.Call(ctx, MethodReencrypt, req, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

// CreateEIP712 decodes the guest's typed-data payload into out.
func CreateEIP712(ctx context.Context, c Caller, req CreateEIP712Request, out any) error {
	return c.Call(ctx, MethodCreateEIP712, req, out)
}

func GenerateKeypair(ctx context.Context, c Caller, id InstanceID) (KeypairResult, error) {
	var out KeypairResult
	if err := c.Call(ctx, MethodGenerateKeypair, instanceRef{Instance: id}, &out); err != nil {
		return KeypairResult{}, err
	}
	return out, nil
}
