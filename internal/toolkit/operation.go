package toolkit

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Operation 是工具构造出的最小执行单元，只有两类：
// 链上调用（Call）与签名请求（SignMessage / SignTypedData）。
// Operation 一经构造不再修改，由执行器一次性消费。
type Operation interface {
	isOperation()
}

// Call 描述一笔链上交易：目标地址、原生币金额（最小单位）与调用数据。
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// SignMessage 描述一次个人消息签名请求（EIP-191）。
type SignMessage struct {
	Message string
}

// SignTypedData 描述一次结构化数据签名请求（EIP-712）。
type SignTypedData struct {
	TypedData apitypes.TypedData
}

func (Call) isOperation()          {}
func (SignMessage) isOperation()   {}
func (SignTypedData) isOperation() {}

// Operations 是可序列化的操作列表，JSON 表示使用带 type 标签的信封，
// 金额一律编码为十进制字符串（最小单位）。
type Operations []Operation

type opEnvelope struct {
	Type      string              `json:"type"`
	Target    string              `json:"target,omitempty"`
	Value     string              `json:"value,omitempty"`
	Data      hexutil.Bytes       `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	TypedData *apitypes.TypedData `json:"typed_data,omitempty"`
}

const (
	opTypeCall          = "call"
	opTypeSignMessage   = "sign_message"
	opTypeSignTypedData = "sign_typed_data"
)

// MarshalJSON 实现 json.Marshaler。
func (ops Operations) MarshalJSON() ([]byte, error) {
	envelopes := make([]opEnvelope, 0, len(ops))
	for _, op := range ops {
		switch v := op.(type) {
		case Call:
			value := "0"
			if v.Value != nil {
				value = v.Value.String()
			}
			envelopes = append(envelopes, opEnvelope{
				Type:   opTypeCall,
				Target: v.To.Hex(),
				Value:  value,
				Data:   v.Data,
			})
		case SignMessage:
			envelopes = append(envelopes, opEnvelope{Type: opTypeSignMessage, Message: v.Message})
		case SignTypedData:
			typed := v.TypedData
			envelopes = append(envelopes, opEnvelope{Type: opTypeSignTypedData, TypedData: &typed})
		default:
			return nil, fmt.Errorf("未知的操作类型 %T", op)
		}
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (ops *Operations) UnmarshalJSON(data []byte) error {
	var envelopes []opEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	decoded := make(Operations, 0, len(envelopes))
	for _, env := range envelopes {
		switch env.Type {
		case opTypeCall:
			if !common.IsHexAddress(env.Target) {
				return fmt.Errorf("call 操作的目标地址非法: %s", env.Target)
			}
			value := new(big.Int)
			if env.Value != "" {
				if _, ok := value.SetString(env.Value, 10); !ok {
					return fmt.Errorf("call 操作的金额非法: %s", env.Value)
				}
			}
			decoded = append(decoded, Call{
				To:    common.HexToAddress(env.Target),
				Value: value,
				Data:  env.Data,
			})
		case opTypeSignMessage:
			decoded = append(decoded, SignMessage{Message: env.Message})
		case opTypeSignTypedData:
			if env.TypedData == nil {
				return fmt.Errorf("sign_typed_data 操作缺少 typed_data")
			}
			decoded = append(decoded, SignTypedData{TypedData: *env.TypedData})
		default:
			return fmt.Errorf("未知的操作类型 %q", env.Type)
		}
	}
	*ops = decoded
	return nil
}
