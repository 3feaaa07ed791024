package app

// OpenAPISpec is the OpenAPI document served at /docs/openapi.yaml
var OpenAPISpec = []byte(`openapi: "3.0.3"
info:
  title: Postline API
  description: Draft approval, scheduling and multi-channel publishing.
  version: "1.0"
servers:
  - url: /api/v1
paths:
  /drafts:
    post:
      summary: Create a draft
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/CreateDraft"
      responses:
        "201":
          description: Draft created
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/Draft"
        "400":
          description: Missing topic or text
    get:
      summary: List drafts
      responses:
        "200":
          description: All drafts currently held in the store
  /drafts/{id}:
    get:
      summary: Fetch a draft
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "200":
          description: Draft
        "404":
          description: Unknown draft
    patch:
      summary: Partially update a draft
      description: >
        Only topic, image_path, channels and calendar_entry_id are
        accepted. Unknown fields are rejected; status and iteration
        counters can never be changed through this endpoint.
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "200":
          description: Updated draft
        "400":
          description: Unknown field in request body
  /drafts/{id}/edit:
    post:
      summary: Apply an edit iteration
      description: >
        Records new text and feedback and increments the iteration
        counter. Refused once the iteration cap is reached; the draft
        must then be approved or rejected.
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "200":
          description: Edited draft
        "409":
          description: Draft not pending or edit limit reached
  /drafts/{id}/approve:
    post:
      summary: Approve a pending draft
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "200":
          description: Approved draft
        "409":
          description: Draft is not pending
  /drafts/{id}/reject:
    post:
      summary: Reject a pending draft
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "200":
          description: Rejected draft
        "409":
          description: Draft is not pending
  /drafts/{id}/image:
    post:
      summary: Upload a draft image
      description: Multipart upload stored in S3; the public URL is attached to the draft.
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "200":
          description: Draft with image URL set
  /drafts/{id}/publish:
    post:
      summary: Publish immediately
      description: >
        Fans the approved draft out to its channels right away. Not
        gated by the circuit breaker, but every outcome is recorded.
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "200":
          description: Per-channel results
        "409":
          description: Draft is not approved
  /drafts/{id}/schedule:
    post:
      summary: Schedule an approved draft
      description: >
        Queues the draft for background publishing. publish_at takes an
        RFC3339 timestamp; offset takes one of now, 1h, 3h, tomorrow,
        evening.
      parameters:
        - $ref: "#/components/parameters/DraftID"
      responses:
        "201":
          description: Schedule entry created
        "409":
          description: Draft is not approved
  /schedule:
    get:
      summary: List pending schedule entries
      responses:
        "200":
          description: Entries still waiting to publish
  /schedule/{id}:
    delete:
      summary: Cancel a pending entry
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "204":
          description: Entry cancelled
        "409":
          description: Entry already resolved
  /status:
    get:
      summary: Operational status
      responses:
        "200":
          description: Breaker state, draft and queue counts, channels
  /breaker/reset:
    post:
      summary: Manually close the circuit breaker
      responses:
        "200":
          description: Breaker status after reset
components:
  parameters:
    DraftID:
      name: id
      in: path
      required: true
      schema:
        type: string
  schemas:
    CreateDraft:
      type: object
      required: [topic, text]
      properties:
        topic:
          type: string
        text:
          type: string
        author:
          type: string
        channels:
          type: array
          items:
            type: string
        image_path:
          type: string
        calendar_entry_id:
          type: string
    Draft:
      type: object
      properties:
        id:
          type: string
        topic:
          type: string
        text:
          type: string
        status:
          type: string
          enum: [pending, approved, rejected, published]
        iteration:
          type: integer
        channels:
          type: array
          items:
            type: string
`)
