package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"user_id",
			"amount",
			"currency",
			"method",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"amount": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType": "string",
			},

			"method": bson.M{
				"bsonType": "string",
				"enum": []string{
					"UPI",
					"Cash",
					"Card",
				},
			},

			"txn_ref": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z0-9]{12,}$",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"verified",
					"failed",
					"refunded",
				},
			},

			"verified_by": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"verified_at": bson.M{
				"bsonType": "date",
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
