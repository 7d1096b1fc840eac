package types

// Important: the builtin identifiers must match their index in builtinTypes.
const (
	TypeVoid TypeID = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool

	numBuiltins
)

var builtinTypes = [numBuiltins]Type{
	TypeVoid:   {ID: TypeVoid, Kind: KindVoid, Name: "Void"},
	TypeInt:    {ID: TypeInt, Kind: KindInt, Name: "Int"},
	TypeFloat:  {ID: TypeFloat, Kind: KindFloat, Name: "Float"},
	TypeString: {ID: TypeString, Kind: KindString, Name: "String"},
	TypeBool:   {ID: TypeBool, Kind: KindBool, Name: "Bool"},
}

// IsBuiltin reports whether id is one of the pre-registered primitive types.
func IsBuiltin(id TypeID) bool {
	return id < numBuiltins
}
